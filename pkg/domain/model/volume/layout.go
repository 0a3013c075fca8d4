package volume

// FortranToC reorders a column-major (Fortran) buffer of the given shape
// into row-major (C) order. NIfTI rasters and Fortran-ordered NumPy
// arrays store the first axis fastest; Volume buffers store the last
// axis fastest.
func FortranToC(shape []int, src []float64) []float64 {
	return reorder(shape, src, true)
}

// CToFortran reorders a row-major buffer into column-major order.
func CToFortran(shape []int, src []float64) []float64 {
	return reorder(shape, src, false)
}

func reorder(shape []int, src []float64, fromFortran bool) []float64 {
	n := len(shape)
	if n <= 1 {
		return append([]float64(nil), src...)
	}
	fstr := make([]int, n)
	acc := 1
	for i := 0; i < n; i++ {
		fstr[i] = acc
		acc *= shape[i]
	}
	cstr := Strides(shape)

	dst := make([]float64, len(src))
	idx := make([]int, n)
	for range dst {
		f, c := 0, 0
		for i := range idx {
			f += idx[i] * fstr[i]
			c += idx[i] * cstr[i]
		}
		if fromFortran {
			dst[c] = src[f]
		} else {
			dst[f] = src[c]
		}
		for i := n - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < shape[i] {
				break
			}
			idx[i] = 0
		}
	}
	return dst
}
