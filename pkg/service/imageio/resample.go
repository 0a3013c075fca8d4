package imageio

import (
	"math"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

// resampleChannelFirst resizes the spatial dimensions of a channel-first
// volume [C, s1..sn] to target, using separable interpolation. Source
// coordinates follow the half-pixel convention: src = (dst+0.5)*scale-0.5.
func resampleChannelFirst(vol *volume.Volume, target []int, mode types.InterpMode, pad types.PadMode) (*volume.Volume, error) {
	spatial := vol.Shape[1:]
	if len(target) != len(spatial) {
		return nil, goerr.New("resample target rank mismatch",
			goerr.V("shape", vol.Shape), goerr.V("target", target))
	}

	channels := vol.Shape[0]
	outShape := append([]int{channels}, target...)
	out := volume.New(outShape, vol.DType)

	srcStrides := volume.Strides(spatial)
	chanSrc := volume.NumElems(spatial)
	chanDst := volume.NumElems(target)

	// Per-axis tap positions and weights, indexed by output coordinate.
	axisTaps := make([][][]tap, len(target))
	for ax := range target {
		axisTaps[ax] = make([][]tap, target[ax])
		scale := float64(spatial[ax]) / float64(target[ax])
		for i := 0; i < target[ax]; i++ {
			pos := (float64(i)+0.5)*scale - 0.5
			axisTaps[ax][i] = tapsFor(pos, mode)
		}
	}

	idx := make([]int, len(target))
	for c := 0; c < channels; c++ {
		src := vol.Data[c*chanSrc : (c+1)*chanSrc]
		dst := out.Data[c*chanDst : (c+1)*chanDst]
		for i := range idx {
			idx[i] = 0
		}
		for flat := 0; flat < chanDst; flat++ {
			taps := make([][]tap, len(idx))
			for ax, i := range idx {
				taps[ax] = axisTaps[ax][i]
			}
			dst[flat] = gather(src, spatial, srcStrides, taps, pad)
			for i := len(idx) - 1; i >= 0; i-- {
				idx[i]++
				if idx[i] < target[i] {
					break
				}
				idx[i] = 0
			}
		}
	}
	return out, nil
}

type tap struct {
	index  int
	weight float64
}

// tapsFor returns the source taps contributing to an output sample at
// the (possibly fractional, possibly out-of-grid) position pos.
func tapsFor(pos float64, mode types.InterpMode) []tap {
	switch mode {
	case types.InterpBilinear:
		lo := math.Floor(pos)
		t := pos - lo
		return []tap{
			{index: int(lo), weight: 1 - t},
			{index: int(lo) + 1, weight: t},
		}
	case types.InterpBicubic:
		lo := math.Floor(pos)
		t := pos - lo
		w := catmullRom(t)
		return []tap{
			{index: int(lo) - 1, weight: w[0]},
			{index: int(lo), weight: w[1]},
			{index: int(lo) + 1, weight: w[2]},
			{index: int(lo) + 2, weight: w[3]},
		}
	default: // nearest
		return []tap{{index: int(math.Round(pos)), weight: 1}}
	}
}

// catmullRom computes the 4-tap cubic convolution weights (a = -0.5) for
// fractional offset t in [0, 1).
func catmullRom(t float64) [4]float64 {
	t2 := t * t
	t3 := t2 * t
	return [4]float64{
		-0.5*t3 + t2 - 0.5*t,
		1.5*t3 - 2.5*t2 + 1,
		-1.5*t3 + 2*t2 + 0.5*t,
		0.5*t3 - 0.5*t2,
	}
}

// gather accumulates the weighted product of taps across all axes.
func gather(src []float64, shape, strides []int, taps [][]tap, pad types.PadMode) float64 {
	pick := make([]int, len(taps))
	var sum float64
	var walk func(ax int, weight float64)
	walk = func(ax int, weight float64) {
		if ax == len(taps) {
			offset := 0
			for i, p := range pick {
				offset += p * strides[i]
			}
			sum += weight * src[offset]
			return
		}
		for _, t := range taps[ax] {
			i, inside := resolveIndex(t.index, shape[ax], pad)
			if !inside {
				continue // zeros padding: contributes nothing
			}
			pick[ax] = i
			walk(ax+1, weight*t.weight)
		}
	}
	walk(0, 1)
	return sum
}

// resolveIndex maps an out-of-grid index according to the padding mode.
// The second return is false when the sample must be treated as zero.
func resolveIndex(i, size int, pad types.PadMode) (int, bool) {
	if i >= 0 && i < size {
		return i, true
	}
	switch pad {
	case types.PadZeros:
		return 0, false
	case types.PadReflection:
		if size == 1 {
			return 0, true
		}
		period := 2 * (size - 1)
		i = ((i % period) + period) % period
		if i >= size {
			i = period - i
		}
		return i, true
	default: // border
		if i < 0 {
			return 0, true
		}
		return size - 1, true
	}
}

