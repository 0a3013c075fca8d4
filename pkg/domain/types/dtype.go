package types

import (
	"math"

	"github.com/m-mizutani/goerr/v2"
)

// DType identifies the element type of a volume buffer. Volumes carry
// their values in a float64 buffer; the DType records how the values are
// quantized and how they are laid out on disk.
type DType string

const (
	DTypeUint8   DType = "uint8"
	DTypeInt16   DType = "int16"
	DTypeUint16  DType = "uint16"
	DTypeInt32   DType = "int32"
	DTypeFloat32 DType = "float32"
	DTypeFloat64 DType = "float64"
)

// ParseDType resolves a dtype name. The empty string is not a valid dtype;
// callers use the zero value to mean "keep the source dtype".
func ParseDType(s string) (DType, error) {
	switch DType(s) {
	case DTypeUint8, DTypeInt16, DTypeUint16, DTypeInt32, DTypeFloat32, DTypeFloat64:
		return DType(s), nil
	}
	return "", goerr.New("unknown dtype", goerr.V("dtype", s))
}

// Size returns the on-disk size of one element in bytes.
func (d DType) Size() int {
	switch d {
	case DTypeUint8:
		return 1
	case DTypeInt16, DTypeUint16:
		return 2
	case DTypeInt32, DTypeFloat32:
		return 4
	case DTypeFloat64:
		return 8
	}
	return 0
}

// Integer reports whether the dtype is an integer type.
func (d DType) Integer() bool {
	switch d {
	case DTypeUint8, DTypeInt16, DTypeUint16, DTypeInt32:
		return true
	}
	return false
}

// Quantize maps v into the dtype's representable domain. Integer dtypes
// round half away from zero and clamp to the type's range; float32
// narrows through a round trip; float64 is the identity.
func (d DType) Quantize(v float64) float64 {
	switch d {
	case DTypeUint8:
		return clamp(math.Round(v), 0, math.MaxUint8)
	case DTypeInt16:
		return clamp(math.Round(v), math.MinInt16, math.MaxInt16)
	case DTypeUint16:
		return clamp(math.Round(v), 0, math.MaxUint16)
	case DTypeInt32:
		return clamp(math.Round(v), math.MinInt32, math.MaxInt32)
	case DTypeFloat32:
		return float64(float32(v))
	default:
		return v
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
