// Package pic reads and writes 2-D raster images (PNG, JPEG, BMP).
package pic

import (
	"context"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
	"github.com/voxkit/voxkit/pkg/domain/types"
	_ "golang.org/x/image/bmp" // register BMP decoder
)

// Reader loads PNG, JPEG and BMP files. Grayscale images become 2-D
// volumes of shape [H, W]; color images become [H, W, 3] with the
// channel dimension recorded as the last one in metadata.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

var readerExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true,
}

func (r *Reader) Accepts(path string) bool {
	lower := strings.ToLower(path)
	for ext := range readerExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func (r *Reader) Read(ctx context.Context, path string) (*volume.Volume, volume.Meta, error) {
	f, err := os.Open(path) // #nosec G304 - caller-supplied input path
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to open image file", goerr.V("path", path))
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to decode image", goerr.V("path", path))
	}

	vol, channelLast := fromImage(img)
	meta := volume.Meta{
		volume.MetaFilename:     path,
		volume.MetaAffine:       volume.IdentityAffine(),
		volume.MetaSpatialShape: []int{vol.Shape[0], vol.Shape[1]},
		"format":                format,
	}
	if channelLast {
		meta[volume.MetaOriginalChannelDim] = -1
	}
	return vol, meta, nil
}

// fromImage converts a decoded image to a volume. The second return is
// true when the volume carries a trailing channel dimension.
func fromImage(img image.Image) (*volume.Volume, bool) {
	bounds := img.Bounds()
	h, w := bounds.Dy(), bounds.Dx()

	switch src := img.(type) {
	case *image.Gray:
		vol := volume.New([]int{h, w}, types.DTypeUint8)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				vol.Data[y*w+x] = float64(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return vol, false
	case *image.Gray16:
		vol := volume.New([]int{h, w}, types.DTypeUint16)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				vol.Data[y*w+x] = float64(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return vol, false
	}

	vol := volume.New([]int{h, w, 3}, types.DTypeUint8)
	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cr, cg, cb, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			vol.Data[i] = float64(cr >> 8)
			vol.Data[i+1] = float64(cg >> 8)
			vol.Data[i+2] = float64(cb >> 8)
			i += 3
		}
	}
	return vol, true
}

var _ interfaces.ImageReader = (*Reader)(nil)
