package pic

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
	"github.com/voxkit/voxkit/pkg/domain/types"
	"golang.org/x/image/bmp"
)

const defaultJPEGQuality = 90

// Writer encodes 2-D volumes as PNG, JPEG or BMP. Input must be
// channel-last: [H, W] or [H, W, C] with C in {1, 3}. Values must
// already be quantized to uint8 (or uint16 for grayscale PNG); float
// volumes need the saver's scale option first.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Accepts(ext string) bool {
	return readerExts[strings.ToLower(ext)]
}

func (w *Writer) Encode(vol *volume.Volume, meta volume.Meta, opts map[string]any) ([]byte, error) {
	if err := vol.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid volume for image encoding")
	}
	img, err := toImage(vol)
	if err != nil {
		return nil, err
	}

	ext, _ := opts["output_ext"].(string)
	var buf bytes.Buffer
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		quality := defaultJPEGQuality
		if q, ok := opts["quality"].(int); ok {
			quality = q
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, goerr.Wrap(err, "failed to encode JPEG")
		}
	case ".bmp":
		if err := bmp.Encode(&buf, img); err != nil {
			return nil, goerr.Wrap(err, "failed to encode BMP")
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, goerr.Wrap(err, "failed to encode PNG")
		}
	}
	return buf.Bytes(), nil
}

func toImage(vol *volume.Volume) (image.Image, error) {
	shape := vol.Shape
	channels := 1
	switch len(shape) {
	case 2:
	case 3:
		channels = shape[2]
	default:
		return nil, goerr.New("image writer needs a 2-D volume", goerr.V("shape", shape))
	}
	h, w := shape[0], shape[1]

	switch {
	case channels == 1 && vol.DType == types.DTypeUint16:
		img := image.NewGray16(image.Rect(0, 0, w, h))
		for i, v := range vol.Data {
			img.Pix[i*2] = byte(uint16(v) >> 8)
			img.Pix[i*2+1] = byte(uint16(v))
		}
		return img, nil
	case channels == 1 && vol.DType == types.DTypeUint8:
		img := image.NewGray(image.Rect(0, 0, w, h))
		for i, v := range vol.Data {
			img.Pix[i] = byte(uint8(v))
		}
		return img, nil
	case channels == 3 && vol.DType == types.DTypeUint8:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		for p := 0; p < h*w; p++ {
			img.Pix[p*4] = byte(uint8(vol.Data[p*3]))
			img.Pix[p*4+1] = byte(uint8(vol.Data[p*3+1]))
			img.Pix[p*4+2] = byte(uint8(vol.Data[p*3+2]))
			img.Pix[p*4+3] = 0xff
		}
		return img, nil
	}
	return nil, goerr.New("unsupported dtype/channel combination for image writer",
		goerr.V("dtype", vol.DType), goerr.V("channels", channels))
}

var _ interfaces.ImageWriter = (*Writer)(nil)
