package record

// Record is a keyed data sample: a mapping from user-defined string keys
// to values such as file paths, volumes, labels, or arbitrary payloads.
// Transforms never mutate a caller's record; they work on a shallow copy
// and reassign only the keys they process.
type Record map[string]any

// Clone returns a shallow copy sharing value ownership with r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// MetaPostfix is the suffix appended to a data key to derive the key its
// metadata is stored under.
const MetaPostfix = "_meta_dict"

// MetaKey derives the metadata key for a data key.
func MetaKey(key string) string {
	return key + MetaPostfix
}
