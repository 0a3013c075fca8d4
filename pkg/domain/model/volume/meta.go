package volume

// Well-known metadata keys. Readers populate these; the saver consumes
// them for resampling and output path construction.
const (
	MetaFilename           = "filename_or_obj"
	MetaAffine             = "affine"
	MetaOriginalAffine     = "original_affine"
	MetaSpatialShape       = "spatial_shape"
	MetaOriginalChannelDim = "original_channel_dim"
	MetaPatchIndex         = "patch_index"
	MetaSpace              = "space"
)

// Meta carries per-volume metadata as an open key-value map.
type Meta map[string]any

// Clone returns a shallow copy.
func (m Meta) Clone() Meta {
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Filename returns the source filename, or "" when the volume did not
// come from a file.
func (m Meta) Filename() string {
	s, _ := m[MetaFilename].(string)
	return s
}

// SpatialShape returns the original spatial shape, or nil when unknown.
func (m Meta) SpatialShape() []int {
	switch v := m[MetaSpatialShape].(type) {
	case []int:
		return v
	case []any:
		out := make([]int, 0, len(v))
		for _, e := range v {
			switch n := e.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			default:
				return nil
			}
		}
		return out
	}
	return nil
}

// ChannelDim returns the original channel dimension index, or nil when
// the source had no channel dimension.
func (m Meta) ChannelDim() *int {
	switch v := m[MetaOriginalChannelDim].(type) {
	case int:
		d := v
		return &d
	case float64:
		d := int(v)
		return &d
	}
	return nil
}

// PatchIndex returns the patch index for multi-part inputs.
func (m Meta) PatchIndex() (int, bool) {
	switch v := m[MetaPatchIndex].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Affine returns the 4x4 voxel-to-world transform, or identity when
// unknown.
func (m Meta) Affine() [4][4]float64 {
	if a, ok := m[MetaAffine].([4][4]float64); ok {
		return a
	}
	return IdentityAffine()
}

// IdentityAffine returns a 4x4 identity matrix.
func IdentityAffine() [4][4]float64 {
	var a [4][4]float64
	for i := range a {
		a[i][i] = 1
	}
	return a
}
