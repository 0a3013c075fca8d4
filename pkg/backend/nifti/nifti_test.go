package nifti_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/voxkit/voxkit/pkg/backend/nifti"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

func writeFixture(t *testing.T, name string, vol *volume.Volume, meta volume.Meta) string {
	t.Helper()
	data, err := nifti.NewWriter().Encode(vol, meta, map[string]any{"output_ext": filepath.Ext(name)})
	gt.NoError(t, err).Required()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, data, 0600)).Required()
	return path
}

func TestAccepts(t *testing.T) {
	r := nifti.NewReader()
	gt.True(t, r.Accepts("scan.nii"))
	gt.True(t, r.Accepts("scan.nii.gz"))
	gt.False(t, r.Accepts("scan.png"))

	w := nifti.NewWriter()
	gt.True(t, w.Accepts(".nii.gz"))
	gt.False(t, w.Accepts(".npy"))
}

func TestRoundTripFloat32(t *testing.T) {
	src := &volume.Volume{
		Shape: []int{2, 3, 4},
		DType: types.DTypeFloat32,
		Data:  make([]float64, 24),
	}
	for i := range src.Data {
		src.Data[i] = float64(i) * 0.5
	}
	affine := volume.IdentityAffine()
	affine[0][0] = 2.0
	affine[1][3] = -7.5
	meta := volume.Meta{volume.MetaAffine: affine}

	path := writeFixture(t, "vol.nii", src, meta)

	vol, loadedMeta, err := nifti.NewReader().Read(context.Background(), path)
	gt.NoError(t, err).Required()
	gt.Equal(t, vol.Shape, []int{2, 3, 4})
	gt.Equal(t, vol.DType, types.DTypeFloat32)
	gt.Equal(t, vol.Data, src.Data)
	gt.Equal(t, loadedMeta.SpatialShape(), []int{2, 3, 4})
	gt.Equal(t, loadedMeta.Affine()[0][0], 2.0)
	gt.Equal(t, loadedMeta.Affine()[1][3], -7.5)
}

func TestRoundTripInt16Gzip(t *testing.T) {
	src := &volume.Volume{
		Shape: []int{4, 4},
		DType: types.DTypeInt16,
		Data:  make([]float64, 16),
	}
	for i := range src.Data {
		src.Data[i] = float64(i - 8)
	}

	// The .gz suffix triggers gzip compression in the writer.
	path := writeFixture(t, "vol.nii.gz", src, nil)

	vol, _, err := nifti.NewReader().Read(context.Background(), path)
	gt.NoError(t, err).Required()
	gt.Equal(t, vol.DType, types.DTypeInt16)
	gt.Equal(t, vol.Data, src.Data)
}

func TestReadRejectsNegativeDimension(t *testing.T) {
	src := &volume.Volume{
		Shape: []int{2, 3, 4},
		DType: types.DTypeFloat32,
		Data:  make([]float64, 24),
	}
	raw, err := nifti.NewWriter().Encode(src, nil, map[string]any{"output_ext": ".nii"})
	gt.NoError(t, err).Required()

	// dim[1] is the int16 at byte offset 42; flip it to -1. The header
	// still parses, so the reader must reject the shape itself instead of
	// slicing with a negative element count.
	raw[42] = 0xFF
	raw[43] = 0xFF
	path := filepath.Join(t.TempDir(), "negdim.nii")
	gt.NoError(t, os.WriteFile(path, raw, 0600)).Required()

	_, _, err = nifti.NewReader().Read(context.Background(), path)
	gt.Error(t, err)
}

func TestReadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.nii")
	gt.NoError(t, os.WriteFile(path, []byte("not a nifti file"), 0600)).Required()

	_, _, err := nifti.NewReader().Read(context.Background(), path)
	gt.Error(t, err)
}
