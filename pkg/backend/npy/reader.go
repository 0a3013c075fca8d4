package npy

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
)

// Reader loads NumPy arrays from .npy files and .npz archives. For .npz
// the "arr_0" entry is used when present, otherwise the first entry.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func (r *Reader) Accepts(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".npy") || strings.HasSuffix(lower, ".npz")
}

func (r *Reader) Read(ctx context.Context, path string) (*volume.Volume, volume.Meta, error) {
	raw, err := os.ReadFile(path) // #nosec G304 - caller-supplied input path
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to read npy file", goerr.V("path", path))
	}

	if strings.HasSuffix(strings.ToLower(path), ".npz") {
		raw, err = extractArchiveEntry(raw)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to read npz archive", goerr.V("path", path))
		}
	}

	vol, err := Decode(raw)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to decode npy data", goerr.V("path", path))
	}

	meta := volume.Meta{
		volume.MetaFilename:     path,
		volume.MetaAffine:       volume.IdentityAffine(),
		volume.MetaSpatialShape: append([]int(nil), vol.Shape...),
	}
	return vol, meta, nil
}

// Decode parses a single in-memory npy payload.
func Decode(raw []byte) (*volume.Volume, error) {
	h, offset, err := parseArrayHeader(raw)
	if err != nil {
		return nil, err
	}
	n := volume.NumElems(h.shape)
	data, err := decodeValues(raw[offset:], h.dtype, n)
	if err != nil {
		return nil, err
	}
	if h.fortran {
		data = volume.FortranToC(h.shape, data)
	}
	return &volume.Volume{Shape: h.shape, DType: h.dtype, Data: data}, nil
}

func extractArchiveEntry(raw []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, goerr.Wrap(err, "not a zip archive")
	}
	if len(zr.File) == 0 {
		return nil, goerr.New("empty npz archive")
	}
	entry := zr.File[0]
	for _, f := range zr.File {
		if f.Name == "arr_0.npy" || f.Name == "arr_0" {
			entry = f
			break
		}
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open npz entry", goerr.V("entry", entry.Name))
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

var _ interfaces.ImageReader = (*Reader)(nil)
