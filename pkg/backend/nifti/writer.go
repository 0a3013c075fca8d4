package nifti

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"math"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

// Writer encodes volumes as NIfTI-1. Output is gzip-compressed when the
// requested extension ends in ".gz" (passed via the "output_ext" option).
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Accepts(ext string) bool {
	lower := strings.ToLower(ext)
	return lower == ".nii" || lower == ".nii.gz"
}

func (w *Writer) Encode(vol *volume.Volume, meta volume.Meta, opts map[string]any) ([]byte, error) {
	if err := vol.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid volume for NIfTI encoding")
	}
	if len(vol.Shape) > 7 {
		return nil, goerr.New("too many dimensions for NIfTI-1", goerr.V("shape", vol.Shape))
	}

	code, err := codeFromDType(vol.DType)
	if err != nil {
		return nil, err
	}

	h := header{
		SizeofHdr: headerSize,
		Regular:   'r',
		Datatype:  code,
		Bitpix:    int16(vol.DType.Size() * 8),
		VoxOffset: dataOffset,
		SclSlope:  1,
		SformCode: 1,
		QformCode: 0,
	}
	copy(h.Magic[:], magicSingle)
	h.Dim[0] = int16(len(vol.Shape))
	for i := range h.Pixdim {
		h.Pixdim[i] = 1
	}
	for i, d := range vol.Shape {
		h.Dim[i+1] = int16(d)
	}
	for i := len(vol.Shape) + 1; i < 8; i++ {
		h.Dim[i] = 1
	}

	affine := meta.Affine()
	for j := 0; j < 4; j++ {
		h.SrowX[j] = float32(affine[0][j])
		h.SrowY[j] = float32(affine[1][j])
		h.SrowZ[j] = float32(affine[2][j])
	}
	for i := 0; i < 3 && i < len(vol.Shape); i++ {
		h.Pixdim[i+1] = float32(math.Hypot(math.Hypot(affine[0][i], affine[1][i]), affine[2][i]))
	}

	var body bytes.Buffer
	if err := binary.Write(&body, binary.LittleEndian, &h); err != nil {
		return nil, goerr.Wrap(err, "failed to encode NIfTI header")
	}
	body.Write([]byte{0, 0, 0, 0}) // no header extensions

	raster := volume.CToFortran(vol.Shape, vol.Data)
	if err := encodeRaster(&body, raster, vol.DType); err != nil {
		return nil, err
	}

	ext, _ := opts["output_ext"].(string)
	if !strings.HasSuffix(strings.ToLower(ext), ".gz") {
		return body.Bytes(), nil
	}

	var out bytes.Buffer
	gz := gzip.NewWriter(&out)
	if _, err := gz.Write(body.Bytes()); err != nil {
		return nil, goerr.Wrap(err, "failed to compress NIfTI data")
	}
	if err := gz.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to finalize gzip stream")
	}
	return out.Bytes(), nil
}

func encodeRaster(buf *bytes.Buffer, data []float64, dt types.DType) error {
	le := binary.LittleEndian
	scratch := make([]byte, 8)
	for _, v := range data {
		switch dt {
		case types.DTypeUint8:
			buf.WriteByte(byte(uint8(v)))
			continue
		case types.DTypeInt16:
			le.PutUint16(scratch, uint16(int16(v)))
		case types.DTypeUint16:
			le.PutUint16(scratch, uint16(v))
		case types.DTypeInt32:
			le.PutUint32(scratch, uint32(int32(v)))
		case types.DTypeFloat32:
			le.PutUint32(scratch, math.Float32bits(float32(v)))
		case types.DTypeFloat64:
			le.PutUint64(scratch, math.Float64bits(v))
		default:
			return goerr.New("dtype not representable in NIfTI-1", goerr.V("dtype", dt))
		}
		buf.Write(scratch[:dt.Size()])
	}
	return nil
}

var _ interfaces.ImageWriter = (*Writer)(nil)
