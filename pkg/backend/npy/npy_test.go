package npy_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/voxkit/voxkit/pkg/backend/npy"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

// buildNpy assembles an npy payload the way numpy.save does.
func buildNpy(t *testing.T, descr, shape string, fortran bool, payload []byte) []byte {
	t.Helper()
	order := "False"
	if fortran {
		order = "True"
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': (%s), }", descr, order, shape)
	total := 6 + 4 + len(dict) + 1
	pad := (64 - total%64) % 64
	for i := 0; i < pad; i++ {
		dict += " "
	}
	dict += "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.WriteByte(1)
	buf.WriteByte(0)
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(dict))); err != nil {
		t.Fatal(err)
	}
	buf.WriteString(dict)
	buf.Write(payload)
	return buf.Bytes()
}

func TestDecodeFloat32(t *testing.T) {
	payload := new(bytes.Buffer)
	for _, v := range []float32{1, 2, 3, 4, 5, 6} {
		if err := binary.Write(payload, binary.LittleEndian, math.Float32bits(v)); err != nil {
			t.Fatal(err)
		}
	}
	raw := buildNpy(t, "<f4", "2, 3", false, payload.Bytes())

	vol, err := npy.Decode(raw)
	gt.NoError(t, err).Required()
	gt.Equal(t, vol.Shape, []int{2, 3})
	gt.Equal(t, vol.DType, types.DTypeFloat32)
	gt.Equal(t, vol.Data, []float64{1, 2, 3, 4, 5, 6})
}

func TestDecodeFortranOrder(t *testing.T) {
	// F-order 2x3 holding 1..6 row-major: stored column by column.
	payload := []byte{1, 4, 2, 5, 3, 6}
	raw := buildNpy(t, "|u1", "2, 3", true, payload)

	vol, err := npy.Decode(raw)
	gt.NoError(t, err).Required()
	gt.Equal(t, vol.Data, []float64{1, 2, 3, 4, 5, 6})
}

func TestWriterRoundTrip(t *testing.T) {
	src := &volume.Volume{
		Shape: []int{3, 2},
		DType: types.DTypeInt32,
		Data:  []float64{-3, -2, -1, 1, 2, 3},
	}
	raw, err := npy.NewWriter().Encode(src, nil, nil)
	gt.NoError(t, err).Required()

	vol, err := npy.Decode(raw)
	gt.NoError(t, err).Required()
	gt.Equal(t, vol.Shape, src.Shape)
	gt.Equal(t, vol.DType, src.DType)
	gt.Equal(t, vol.Data, src.Data)
}

func TestReadNpzArchive(t *testing.T) {
	inner := buildNpy(t, "|u1", "4,", false, []byte{9, 8, 7, 6})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("arr_0.npy")
	gt.NoError(t, err).Required()
	_, err = w.Write(inner)
	gt.NoError(t, err).Required()
	gt.NoError(t, zw.Close()).Required()

	path := filepath.Join(t.TempDir(), "arrays.npz")
	gt.NoError(t, os.WriteFile(path, buf.Bytes(), 0600)).Required()

	vol, meta, err := npy.NewReader().Read(context.Background(), path)
	gt.NoError(t, err).Required()
	gt.Equal(t, vol.Shape, []int{4})
	gt.Equal(t, vol.Data, []float64{9, 8, 7, 6})
	gt.Equal(t, meta.Filename(), path)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := npy.Decode([]byte("definitely not numpy"))
	gt.Error(t, err)
}

func TestDecodeRejectsBadDimensions(t *testing.T) {
	// Headers parse but the shapes are unusable; decoding must error
	// instead of allocating from a negative or zero element count.
	for _, shape := range []string{"-4,", "2, -3", "0, 2"} {
		raw := buildNpy(t, "|u1", shape, false, []byte{1, 2, 3, 4})
		_, err := npy.Decode(raw)
		gt.Error(t, err)
	}
}
