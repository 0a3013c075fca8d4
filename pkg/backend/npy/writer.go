package npy

import (
	"bytes"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
)

// Writer encodes volumes as .npy version 1.0, little-endian, C order.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Accepts(ext string) bool {
	return strings.ToLower(ext) == ".npy"
}

func (w *Writer) Encode(vol *volume.Volume, meta volume.Meta, opts map[string]any) ([]byte, error) {
	if err := vol.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid volume for npy encoding")
	}
	head, err := encodeHeader(vol.DType, vol.Shape)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(head)
	encodeValues(buf, vol.Data, vol.DType)
	return buf.Bytes(), nil
}

var _ interfaces.ImageWriter = (*Writer)(nil)
