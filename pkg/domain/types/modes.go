package types

import "github.com/m-mizutani/goerr/v2"

// InterpMode selects the interpolation kernel used when a volume is
// resampled back to its original spatial shape before saving.
type InterpMode string

const (
	InterpNearest  InterpMode = "nearest"
	InterpBilinear InterpMode = "bilinear"
	InterpBicubic  InterpMode = "bicubic"
)

func ParseInterpMode(s string) (InterpMode, error) {
	switch InterpMode(s) {
	case InterpNearest, InterpBilinear, InterpBicubic:
		return InterpMode(s), nil
	}
	return "", goerr.New("unknown interpolation mode", goerr.V("mode", s))
}

// PadMode controls how samples outside the source grid are resolved
// during resampling.
type PadMode string

const (
	// PadZeros treats everything outside the grid as zero.
	PadZeros PadMode = "zeros"
	// PadBorder clamps coordinates to the nearest edge value.
	PadBorder PadMode = "border"
	// PadReflection mirrors coordinates at the grid boundary.
	PadReflection PadMode = "reflection"
)

func ParsePadMode(s string) (PadMode, error) {
	switch PadMode(s) {
	case PadZeros, PadBorder, PadReflection:
		return PadMode(s), nil
	}
	return "", goerr.New("unknown padding mode", goerr.V("mode", s))
}
