// Package npy reads and writes NumPy array files (.npy version 1.0) and
// reads zipped archives of them (.npz).
package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

var magic = []byte("\x93NUMPY")

var headerRe = regexp.MustCompile(
	`'descr':\s*'([^']+)',\s*'fortran_order':\s*(True|False),\s*'shape':\s*\(([^)]*)\)`)

type arrayHeader struct {
	dtype   types.DType
	fortran bool
	shape   []int
}

func descrToDType(descr string) (types.DType, error) {
	switch descr {
	case "|u1", "<u1":
		return types.DTypeUint8, nil
	case "<i2":
		return types.DTypeInt16, nil
	case "<u2":
		return types.DTypeUint16, nil
	case "<i4":
		return types.DTypeInt32, nil
	case "<f4":
		return types.DTypeFloat32, nil
	case "<f8":
		return types.DTypeFloat64, nil
	}
	return "", goerr.New("unsupported npy descr", goerr.V("descr", descr))
}

func dtypeToDescr(dt types.DType) (string, error) {
	switch dt {
	case types.DTypeUint8:
		return "|u1", nil
	case types.DTypeInt16:
		return "<i2", nil
	case types.DTypeUint16:
		return "<u2", nil
	case types.DTypeInt32:
		return "<i4", nil
	case types.DTypeFloat32:
		return "<f4", nil
	case types.DTypeFloat64:
		return "<f8", nil
	}
	return "", goerr.New("dtype not representable as npy descr", goerr.V("dtype", dt))
}

func parseArrayHeader(raw []byte) (*arrayHeader, int, error) {
	if len(raw) < 10 || !bytes.Equal(raw[:6], magic) {
		return nil, 0, goerr.New("not an npy file: bad magic")
	}
	major := raw[6]
	if major != 1 {
		return nil, 0, goerr.New("unsupported npy version", goerr.V("major", major))
	}
	hlen := int(binary.LittleEndian.Uint16(raw[8:10]))
	if len(raw) < 10+hlen {
		return nil, 0, goerr.New("truncated npy header")
	}
	dict := string(raw[10 : 10+hlen])

	m := headerRe.FindStringSubmatch(dict)
	if m == nil {
		return nil, 0, goerr.New("malformed npy header dict", goerr.V("header", dict))
	}
	dt, err := descrToDType(m[1])
	if err != nil {
		return nil, 0, err
	}
	h := &arrayHeader{dtype: dt, fortran: m[2] == "True"}
	for _, part := range strings.Split(m[3], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, 0, goerr.Wrap(err, "malformed npy shape", goerr.V("shape", m[3]))
		}
		if d <= 0 {
			return nil, 0, goerr.New("non-positive npy dimension", goerr.V("shape", m[3]))
		}
		h.shape = append(h.shape, d)
	}
	if len(h.shape) == 0 {
		// A 0-d array holds a single scalar.
		h.shape = []int{1}
	}
	return h, 10 + hlen, nil
}

func encodeHeader(dt types.DType, shape []int) ([]byte, error) {
	descr, err := dtypeToDescr(dt)
	if err != nil {
		return nil, err
	}
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	shapeStr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeStr += ","
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", descr, shapeStr)

	// Pad so that data starts on a 64-byte boundary, terminated by \n.
	total := len(magic) + 4 + len(dict) + 1
	pad := (64 - total%64) % 64
	dict += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.Write(magic)
	buf.WriteByte(1)
	buf.WriteByte(0)
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(dict))); err != nil {
		return nil, goerr.Wrap(err, "failed to encode npy header length")
	}
	buf.WriteString(dict)
	return buf.Bytes(), nil
}

func decodeValues(raw []byte, dt types.DType, n int) ([]float64, error) {
	size := dt.Size()
	if n <= 0 || len(raw) < n*size {
		return nil, goerr.New("truncated npy data",
			goerr.V("expected", n*size), goerr.V("len", len(raw)))
	}
	le := binary.LittleEndian
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		chunk := raw[i*size : (i+1)*size]
		switch dt {
		case types.DTypeUint8:
			out[i] = float64(chunk[0])
		case types.DTypeInt16:
			out[i] = float64(int16(le.Uint16(chunk)))
		case types.DTypeUint16:
			out[i] = float64(le.Uint16(chunk))
		case types.DTypeInt32:
			out[i] = float64(int32(le.Uint32(chunk)))
		case types.DTypeFloat32:
			out[i] = float64(math.Float32frombits(le.Uint32(chunk)))
		case types.DTypeFloat64:
			out[i] = math.Float64frombits(le.Uint64(chunk))
		}
	}
	return out, nil
}

func encodeValues(buf *bytes.Buffer, data []float64, dt types.DType) {
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
		}
		buf.Write(scratch[:dt.Size()])
	}
}
