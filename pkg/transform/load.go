package transform

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
	"github.com/voxkit/voxkit/pkg/domain/model/record"
	"github.com/voxkit/voxkit/pkg/domain/types"
	"github.com/voxkit/voxkit/pkg/service/imageio"
)

// LoadDictOptions configures NewLoadDict. Legacy fields are accepted for
// backward compatibility but superseded by the metadata-key convention;
// supplying one emits a deprecation warning.
type LoadDictOptions struct {
	// Reader is an explicit reader backend preferred over the defaults.
	Reader interfaces.ImageReader
	// ReaderName requests a reader from the registry by name ("nifti",
	// "pic", "npy"). Ignored when Reader is set.
	ReaderName string
	// DType converts loaded values; empty means float32.
	DType types.DType
	// EnsureChannelFirst normalizes loaded volumes to channel-first.
	EnsureChannelFirst bool
	// AllowMissingKeys skips configured keys absent from a record instead
	// of failing.
	AllowMissingKeys bool

	// Deprecated: metadata is stored under "<key>_meta_dict"; explicit
	// metadata keys are ignored.
	MetaKeys []string
	// Deprecated: the metadata postfix is fixed to "_meta_dict".
	MetaKeyPostfix string
	// Deprecated: metadata is always loaded alongside the image.
	ImageOnly bool
	// Deprecated: loaded values always overwrite the key.
	Overwriting bool
}

// legacyFields maps non-zero deprecated options to their names. Keeping
// the shim in one place keeps the construction path free of legacy
// branches.
func (o LoadDictOptions) legacyFields() []string {
	var fields []string
	if len(o.MetaKeys) > 0 {
		fields = append(fields, "MetaKeys")
	}
	if o.MetaKeyPostfix != "" {
		fields = append(fields, "MetaKeyPostfix")
	}
	if o.ImageOnly {
		fields = append(fields, "ImageOnly")
	}
	if o.Overwriting {
		fields = append(fields, "Overwriting")
	}
	return fields
}

// LoadDict applies an image loader to selected keys of a record. For
// each configured key present in the record, the value (a file path,
// path list, or in-memory volume) is replaced by the loaded volume and
// the volume's metadata is stored under "<key>_meta_dict".
type LoadDict struct {
	mapTransform
	loader *imageio.Loader
}

// NewLoadDict builds the transform. A reader named in opts is resolved
// through the registry here, before any Apply call.
func NewLoadDict(keys []string, opts LoadDictOptions) (*LoadDict, error) {
	warnDeprecated("LoadDict", opts.legacyFields()...)

	base, err := newMapTransform(keys, opts.AllowMissingKeys)
	if err != nil {
		return nil, err
	}
	loader, err := imageio.NewLoader(imageio.LoaderOptions{
		Reader:             opts.Reader,
		ReaderName:         opts.ReaderName,
		DType:              opts.DType,
		EnsureChannelFirst: opts.EnsureChannelFirst,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build loader")
	}
	return &LoadDict{mapTransform: base, loader: loader}, nil
}

// Register adds a reader backend to the loader's candidate list; the new
// reader is preferred over previously registered ones.
func (t *LoadDict) Register(r interfaces.ImageReader) {
	t.loader.Register(r)
}

// Apply loads every configured key of data and returns a shallow copy
// with the loaded volumes and their metadata entries. override, when
// non-nil, is a one-shot reader tried before the configured candidates.
// A failing key aborts the remaining keys; keys already processed stay
// processed in the returned copy's underlying state, but the caller's
// record is never mutated.
func (t *LoadDict) Apply(ctx context.Context, data record.Record, override interfaces.ImageReader) (record.Record, error) {
	d := data.Clone()
	err := t.forEachKey(d, func(key string) error {
		vol, meta, err := t.loader.Load(ctx, d[key], override)
		if err != nil {
			return goerr.Wrap(err, "failed to load record key", goerr.V("key", key))
		}
		d[key] = vol
		d[record.MetaKey(key)] = meta
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
