package pic_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/voxkit/voxkit/pkg/backend/pic"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

func writeGrayPNG(t *testing.T) (string, []uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	values := []uint8{10, 20, 30, 40, 50, 60}
	copy(img.Pix, values)

	var buf bytes.Buffer
	gt.NoError(t, png.Encode(&buf, img)).Required()
	path := filepath.Join(t.TempDir(), "gray.png")
	gt.NoError(t, os.WriteFile(path, buf.Bytes(), 0600)).Required()
	return path, values
}

func TestReadGrayPNG(t *testing.T) {
	path, values := writeGrayPNG(t)

	vol, meta, err := pic.NewReader().Read(context.Background(), path)
	gt.NoError(t, err).Required()
	gt.Equal(t, vol.Shape, []int{2, 3})
	gt.Equal(t, vol.DType, types.DTypeUint8)
	for i, v := range values {
		gt.Equal(t, vol.Data[i], float64(v))
	}
	gt.Equal(t, meta.SpatialShape(), []int{2, 3})
	if meta.ChannelDim() != nil {
		t.Error("grayscale image must not report a channel dimension")
	}
}

func TestReadColorPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 0, B: 255, A: 255})

	var buf bytes.Buffer
	gt.NoError(t, png.Encode(&buf, img)).Required()
	path := filepath.Join(t.TempDir(), "color.png")
	gt.NoError(t, os.WriteFile(path, buf.Bytes(), 0600)).Required()

	vol, meta, err := pic.NewReader().Read(context.Background(), path)
	gt.NoError(t, err).Required()
	gt.Equal(t, vol.Shape, []int{1, 2, 3})
	gt.Equal(t, vol.Data, []float64{255, 0, 0, 0, 0, 255})

	dim := meta.ChannelDim()
	if dim == nil || *dim != -1 {
		t.Errorf("expected trailing channel dimension, got %v", dim)
	}
}

func TestWriteGrayRoundTrip(t *testing.T) {
	src := &volume.Volume{
		Shape: []int{2, 2},
		DType: types.DTypeUint8,
		Data:  []float64{0, 85, 170, 255},
	}
	raw, err := pic.NewWriter().Encode(src, nil, map[string]any{"output_ext": ".png"})
	gt.NoError(t, err).Required()

	img, err := png.Decode(bytes.NewReader(raw))
	gt.NoError(t, err).Required()
	gray := gt.Cast[*image.Gray](t, img)
	gt.Equal(t, []uint8(gray.Pix), []uint8{0, 85, 170, 255})
}

func TestWriteRejectsFloatData(t *testing.T) {
	src := &volume.Volume{
		Shape: []int{2, 2},
		DType: types.DTypeFloat32,
		Data:  []float64{0.1, 0.2, 0.3, 0.4},
	}
	_, err := pic.NewWriter().Encode(src, nil, map[string]any{"output_ext": ".png"})
	gt.Error(t, err)
}

func TestWriteRejects3D(t *testing.T) {
	src := volume.New([]int{2, 2, 2, 2}, types.DTypeUint8)
	_, err := pic.NewWriter().Encode(src, nil, map[string]any{"output_ext": ".png"})
	gt.Error(t, err)
}
