package nifti

import (
	"compress/gzip"
	"context"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

// Reader loads NIfTI-1 files (.nii, .nii.gz).
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func (r *Reader) Accepts(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".nii") || strings.HasSuffix(lower, ".nii.gz")
}

func (r *Reader) Read(ctx context.Context, path string) (*volume.Volume, volume.Meta, error) {
	raw, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}

	h, order, err := parseHeader(raw)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to parse NIfTI header", goerr.V("path", path))
	}

	ndim := int(h.Dim[0])
	if ndim < 1 || ndim > 7 {
		return nil, nil, goerr.New("invalid NIfTI dimension count",
			goerr.V("path", path), goerr.V("dim0", ndim))
	}
	shape := make([]int, ndim)
	for i := 0; i < ndim; i++ {
		d := int(h.Dim[i+1])
		if d <= 0 {
			return nil, nil, goerr.New("invalid NIfTI dimension",
				goerr.V("path", path), goerr.V("axis", i), goerr.V("dim", d))
		}
		shape[i] = d
	}

	dt, err := dtypeFromCode(h.Datatype)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "unsupported NIfTI data", goerr.V("path", path))
	}

	offset := int(h.VoxOffset)
	if offset < headerSize {
		offset = dataOffset
	}
	n := volume.NumElems(shape)
	size := dt.Size()
	if n <= 0 || len(raw) < offset+n*size {
		return nil, nil, goerr.New("truncated NIfTI data",
			goerr.V("path", path), goerr.V("expected", offset+n*size), goerr.V("len", len(raw)))
	}

	data := decodeRaster(raw[offset:offset+n*size], dt, order, n)
	if h.SclSlope != 0 && !(h.SclSlope == 1 && h.SclInter == 0) {
		slope, inter := float64(h.SclSlope), float64(h.SclInter)
		for i, v := range data {
			data[i] = v*slope + inter
		}
	}

	vol := &volume.Volume{
		Shape: shape,
		DType: dt,
		Data:  volume.FortranToC(shape, data),
	}

	affine := affineFromHeader(h)
	meta := volume.Meta{
		volume.MetaFilename:       path,
		volume.MetaAffine:         affine,
		volume.MetaOriginalAffine: affine,
		volume.MetaSpatialShape:   append([]int(nil), shape...),
		volume.MetaSpace:          "RAS",
	}
	return vol, meta, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 - caller-supplied input path
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open NIfTI file", goerr.V("path", path))
	}
	defer f.Close()

	var src io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open gzip stream", goerr.V("path", path))
		}
		defer gz.Close()
		src = gz
	}
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read NIfTI file", goerr.V("path", path))
	}
	return raw, nil
}

func decodeRaster(raw []byte, dt types.DType, order binary.ByteOrder, n int) []float64 {
	size := dt.Size()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		chunk := raw[i*size : (i+1)*size]
		switch dt {
		case types.DTypeUint8:
			out[i] = float64(chunk[0])
		case types.DTypeInt16:
			out[i] = float64(int16(order.Uint16(chunk)))
		case types.DTypeUint16:
			out[i] = float64(order.Uint16(chunk))
		case types.DTypeInt32:
			out[i] = float64(int32(order.Uint32(chunk)))
		case types.DTypeFloat32:
			out[i] = float64(math.Float32frombits(order.Uint32(chunk)))
		case types.DTypeFloat64:
			out[i] = math.Float64frombits(order.Uint64(chunk))
		}
	}
	return out
}

func affineFromHeader(h *header) [4][4]float64 {
	if h.SformCode > 0 {
		var a [4][4]float64
		for j := 0; j < 4; j++ {
			a[0][j] = float64(h.SrowX[j])
			a[1][j] = float64(h.SrowY[j])
			a[2][j] = float64(h.SrowZ[j])
		}
		a[3] = [4]float64{0, 0, 0, 1}
		return a
	}
	// No sform: fall back to voxel spacing on the diagonal.
	a := volume.IdentityAffine()
	for i := 0; i < 3 && i < int(h.Dim[0]); i++ {
		if h.Pixdim[i+1] != 0 {
			a[i][i] = float64(h.Pixdim[i+1])
		}
	}
	return a
}

var _ interfaces.ImageReader = (*Reader)(nil)
