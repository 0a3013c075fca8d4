package nifti

import (
	"bytes"
	"encoding/binary"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

const (
	headerSize    = 348
	dataOffset    = 352
	magicSingle   = "n+1\x00"
	magicTwoFiles = "ni1\x00"
)

// NIfTI-1 datatype codes.
const (
	codeUint8   = 2
	codeInt16   = 4
	codeInt32   = 8
	codeFloat32 = 16
	codeFloat64 = 64
	codeUint16  = 512
)

// header is the fixed 348-byte NIfTI-1 header.
type header struct {
	SizeofHdr    int32
	DataTypeName [10]byte
	DBName       [18]byte
	Extents      int32
	SessionError int16
	Regular      byte
	DimInfo      byte
	Dim          [8]int16
	IntentP1     float32
	IntentP2     float32
	IntentP3     float32
	IntentCode   int16
	Datatype     int16
	Bitpix       int16
	SliceStart   int16
	Pixdim       [8]float32
	VoxOffset    float32
	SclSlope     float32
	SclInter     float32
	SliceEnd     int16
	SliceCode    byte
	XyztUnits    byte
	CalMax       float32
	CalMin       float32
	SliceDur     float32
	Toffset      float32
	Glmax        int32
	Glmin        int32
	Descrip      [80]byte
	AuxFile      [24]byte
	QformCode    int16
	SformCode    int16
	QuaternB     float32
	QuaternC     float32
	QuaternD     float32
	QoffsetX     float32
	QoffsetY     float32
	QoffsetZ     float32
	SrowX        [4]float32
	SrowY        [4]float32
	SrowZ        [4]float32
	IntentName   [16]byte
	Magic        [4]byte
}

// parseHeader decodes the header, detecting byte order via sizeof_hdr.
func parseHeader(raw []byte) (*header, binary.ByteOrder, error) {
	if len(raw) < headerSize {
		return nil, nil, goerr.New("truncated NIfTI header", goerr.V("len", len(raw)))
	}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		var h header
		if err := binary.Read(bytes.NewReader(raw[:headerSize]), order, &h); err != nil {
			return nil, nil, goerr.Wrap(err, "failed to decode NIfTI header")
		}
		if h.SizeofHdr == headerSize {
			return &h, order, nil
		}
	}
	return nil, nil, goerr.New("not a NIfTI-1 file: bad sizeof_hdr")
}

func dtypeFromCode(code int16) (types.DType, error) {
	switch code {
	case codeUint8:
		return types.DTypeUint8, nil
	case codeInt16:
		return types.DTypeInt16, nil
	case codeUint16:
		return types.DTypeUint16, nil
	case codeInt32:
		return types.DTypeInt32, nil
	case codeFloat32:
		return types.DTypeFloat32, nil
	case codeFloat64:
		return types.DTypeFloat64, nil
	}
	return "", goerr.New("unsupported NIfTI datatype", goerr.V("code", code))
}

func codeFromDType(dt types.DType) (int16, error) {
	switch dt {
	case types.DTypeUint8:
		return codeUint8, nil
	case types.DTypeInt16:
		return codeInt16, nil
	case types.DTypeUint16:
		return codeUint16, nil
	case types.DTypeInt32:
		return codeInt32, nil
	case types.DTypeFloat32:
		return codeFloat32, nil
	case types.DTypeFloat64:
		return codeFloat64, nil
	}
	return 0, goerr.New("dtype not representable in NIfTI-1", goerr.V("dtype", dt))
}
