package interfaces

import (
	"context"

	"github.com/voxkit/voxkit/pkg/domain/model/volume"
)

// ImageReader loads a volume and its metadata from a file.
type ImageReader interface {
	// Accepts reports whether the reader claims the given path, typically
	// by extension. A false return makes the loader skip this reader
	// without counting it as a failure.
	Accepts(path string) bool
	// Read loads the file into a volume plus metadata.
	Read(ctx context.Context, path string) (*volume.Volume, volume.Meta, error)
}

// ImageWriter encodes a volume into a file format.
type ImageWriter interface {
	// Accepts reports whether the writer claims the given output extension
	// (including the leading dot, e.g. ".nii.gz").
	Accepts(ext string) bool
	// Encode serializes the volume. opts carries writer-specific options
	// merged from the saver's option bundles; unknown options are ignored.
	Encode(vol *volume.Volume, meta volume.Meta, opts map[string]any) ([]byte, error)
}

// Storage persists encoded bytes under relative path-like keys.
type Storage interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
