package volume

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

// Volume is a dense N-dimensional array in C (row-major) order. Values are
// held as float64 regardless of DType; DType records the quantization
// applied to the values and the element type used on disk.
type Volume struct {
	Shape []int
	DType types.DType
	Data  []float64
}

// New allocates a zero-filled volume.
func New(shape []int, dtype types.DType) *Volume {
	return &Volume{
		Shape: append([]int(nil), shape...),
		DType: dtype,
		Data:  make([]float64, NumElems(shape)),
	}
}

// NumElems returns the element count implied by shape.
func NumElems(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Validate checks that the buffer length matches the shape.
func (v *Volume) Validate() error {
	if len(v.Data) != NumElems(v.Shape) {
		return goerr.New("volume buffer does not match shape",
			goerr.V("shape", v.Shape), goerr.V("len", len(v.Data)))
	}
	for _, d := range v.Shape {
		if d <= 0 {
			return goerr.New("non-positive dimension", goerr.V("shape", v.Shape))
		}
	}
	return nil
}

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	return &Volume{
		Shape: append([]int(nil), v.Shape...),
		DType: v.DType,
		Data:  append([]float64(nil), v.Data...),
	}
}

// Strides returns C-order strides for the volume's shape.
func (v *Volume) Strides() []int {
	return Strides(v.Shape)
}

// Strides returns C-order strides for shape: the last axis varies fastest.
func Strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// ConvertDType quantizes every value into dt's domain and retags the
// volume. It mutates the receiver and returns it for chaining.
func (v *Volume) ConvertDType(dt types.DType) *Volume {
	if dt == "" || dt == v.DType {
		if dt != "" {
			v.DType = dt
		}
		return v
	}
	for i, x := range v.Data {
		v.Data[i] = dt.Quantize(x)
	}
	v.DType = dt
	return v
}

// EnsureChannelFirst normalizes the layout so that dimension 0 is the
// channel dimension. channelDim follows the metadata convention: nil means
// the volume has no channel dimension and a singleton one is prepended;
// otherwise it is the index (possibly negative, counting from the end) of
// the existing channel dimension, which is moved to the front.
func (v *Volume) EnsureChannelFirst(channelDim *int) error {
	if channelDim == nil {
		v.Shape = append([]int{1}, v.Shape...)
		return nil
	}
	dim := *channelDim
	if dim < 0 {
		dim += len(v.Shape)
	}
	if dim < 0 || dim >= len(v.Shape) {
		return goerr.New("channel dimension out of range",
			goerr.V("channel_dim", *channelDim), goerr.V("shape", v.Shape))
	}
	if dim == 0 {
		return nil
	}
	v.moveAxis(dim, 0)
	return nil
}

// MoveChannelLast moves dimension 0 to the end. Used before saving, where
// writers expect channel-last data.
func (v *Volume) MoveChannelLast() {
	if len(v.Shape) < 2 {
		return
	}
	v.moveAxis(0, len(v.Shape)-1)
}

// SqueezeEnd drops trailing singleton dimensions, keeping at least one.
func (v *Volume) SqueezeEnd() {
	for len(v.Shape) > 1 && v.Shape[len(v.Shape)-1] == 1 {
		v.Shape = v.Shape[:len(v.Shape)-1]
	}
}

// Stack concatenates volumes of identical shape along a new leading
// dimension. The result takes its dtype from the first volume.
func Stack(vols []*Volume) (*Volume, error) {
	if len(vols) == 0 {
		return nil, goerr.New("cannot stack zero volumes")
	}
	first := vols[0]
	out := &Volume{
		Shape: append([]int{len(vols)}, first.Shape...),
		DType: first.DType,
		Data:  make([]float64, 0, len(vols)*len(first.Data)),
	}
	for _, v := range vols {
		if !EqualShape(v.Shape, first.Shape) {
			return nil, goerr.New("mismatched shapes in stack",
				goerr.V("expected", first.Shape), goerr.V("got", v.Shape))
		}
		out.Data = append(out.Data, v.Data...)
	}
	return out, nil
}

// EqualShape reports whether two shapes have identical dimensions.
func EqualShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// moveAxis permutes the buffer so that the axis at position from lands at
// position to, shifting the axes in between.
func (v *Volume) moveAxis(from, to int) {
	n := len(v.Shape)
	perm := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if i != from {
			perm = append(perm, i)
		}
	}
	perm = append(perm[:to], append([]int{from}, perm[to:]...)...)

	newShape := make([]int, n)
	for i, p := range perm {
		newShape[i] = v.Shape[p]
	}
	oldStrides := Strides(v.Shape)
	newData := make([]float64, len(v.Data))
	idx := make([]int, n)
	for flat := range newData {
		// idx holds the coordinate in the permuted layout; map it back to
		// the source offset through the permutation.
		src := 0
		for i := range idx {
			src += idx[i] * oldStrides[perm[i]]
		}
		newData[flat] = v.Data[src]
		for i := n - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < newShape[i] {
				break
			}
			idx[i] = 0
		}
	}
	v.Shape = newShape
	v.Data = newData
}
