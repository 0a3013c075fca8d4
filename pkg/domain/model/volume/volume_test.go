package volume_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

func TestEnsureChannelFirst_NoChannel(t *testing.T) {
	vol := &volume.Volume{
		Shape: []int{2, 3},
		DType: types.DTypeFloat32,
		Data:  []float64{1, 2, 3, 4, 5, 6},
	}
	gt.NoError(t, vol.EnsureChannelFirst(nil))
	gt.Equal(t, vol.Shape, []int{1, 2, 3})
	gt.Equal(t, vol.Data, []float64{1, 2, 3, 4, 5, 6})
}

func TestEnsureChannelFirst_ChannelLast(t *testing.T) {
	// 2x2 image with 3 channels, channel-last. Pixel (y,x) holds
	// [10*y+x, 100+10*y+x, 200+10*y+x].
	vol := &volume.Volume{
		Shape: []int{2, 2, 3},
		DType: types.DTypeUint8,
		Data: []float64{
			0, 100, 200, 1, 101, 201,
			10, 110, 210, 11, 111, 211,
		},
	}
	dim := -1
	gt.NoError(t, vol.EnsureChannelFirst(&dim))
	gt.Equal(t, vol.Shape, []int{3, 2, 2})
	gt.Equal(t, vol.Data, []float64{
		0, 1, 10, 11,
		100, 101, 110, 111,
		200, 201, 210, 211,
	})
}

func TestEnsureChannelFirst_OutOfRange(t *testing.T) {
	vol := volume.New([]int{2, 2}, types.DTypeFloat32)
	dim := 5
	gt.Error(t, vol.EnsureChannelFirst(&dim))
}

func TestMoveChannelLastAndSqueeze(t *testing.T) {
	// Channel-first (1, 2, 2): squeeze drops the trailing channel.
	vol := &volume.Volume{
		Shape: []int{1, 2, 2},
		DType: types.DTypeFloat32,
		Data:  []float64{1, 2, 3, 4},
	}
	vol.MoveChannelLast()
	gt.Equal(t, vol.Shape, []int{2, 2, 1})
	vol.SqueezeEnd()
	gt.Equal(t, vol.Shape, []int{2, 2})
	gt.Equal(t, vol.Data, []float64{1, 2, 3, 4})
}

func TestConvertDType(t *testing.T) {
	vol := &volume.Volume{
		Shape: []int{4},
		DType: types.DTypeFloat64,
		Data:  []float64{-1.2, 0.5, 254.6, 300},
	}
	vol.ConvertDType(types.DTypeUint8)
	gt.Equal(t, vol.DType, types.DTypeUint8)
	gt.Equal(t, vol.Data, []float64{0, 1, 255, 255})
}

func TestStack(t *testing.T) {
	a := &volume.Volume{Shape: []int{2}, DType: types.DTypeFloat32, Data: []float64{1, 2}}
	b := &volume.Volume{Shape: []int{2}, DType: types.DTypeFloat32, Data: []float64{3, 4}}

	out, err := volume.Stack([]*volume.Volume{a, b})
	gt.NoError(t, err)
	gt.Equal(t, out.Shape, []int{2, 2})
	gt.Equal(t, out.Data, []float64{1, 2, 3, 4})

	c := &volume.Volume{Shape: []int{3}, DType: types.DTypeFloat32, Data: []float64{0, 0, 0}}
	_, err = volume.Stack([]*volume.Volume{a, c})
	gt.Error(t, err)
}

func TestEqualShape(t *testing.T) {
	gt.True(t, volume.EqualShape([]int{2, 3}, []int{2, 3}))
	gt.False(t, volume.EqualShape([]int{2, 3}, []int{3, 2}))
	gt.False(t, volume.EqualShape([]int{2}, []int{2, 1}))
	gt.True(t, volume.EqualShape(nil, nil))
}

func TestFortranToC(t *testing.T) {
	// F-order 2x3: columns stored first.
	forder := []float64{1, 4, 2, 5, 3, 6}
	corder := volume.FortranToC([]int{2, 3}, forder)
	gt.Equal(t, corder, []float64{1, 2, 3, 4, 5, 6})

	back := volume.CToFortran([]int{2, 3}, corder)
	gt.Equal(t, back, forder)
}

func TestMetaHelpers(t *testing.T) {
	meta := volume.Meta{
		volume.MetaFilename:     "/data/scan.nii.gz",
		volume.MetaSpatialShape: []int{4, 5, 6},
		volume.MetaPatchIndex:   3,
	}
	gt.Equal(t, meta.Filename(), "/data/scan.nii.gz")
	gt.Equal(t, meta.SpatialShape(), []int{4, 5, 6})

	idx, ok := meta.PatchIndex()
	gt.True(t, ok)
	gt.Equal(t, idx, 3)

	if got := (volume.Meta{}).SpatialShape(); got != nil {
		t.Errorf("expected nil spatial shape, got %v", got)
	}
	_, ok = volume.Meta{}.PatchIndex()
	gt.False(t, ok)
}
