package transform

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/apperr"
	"github.com/voxkit/voxkit/pkg/domain/model/record"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
	"github.com/voxkit/voxkit/pkg/service/imageio"
)

// SaveDictOptions configures NewSaveDict. Saver holds the full save
// configuration forwarded verbatim to the save service.
type SaveDictOptions struct {
	// Saver is the save service configuration. Use
	// imageio.DefaultSaverOptions as a starting point.
	Saver imageio.SaverOptions
	// AllowMissingKeys skips configured keys absent from a record instead
	// of failing.
	AllowMissingKeys bool

	// Deprecated: metadata travels with the volume under
	// "<key>_meta_dict"; explicit metadata keys are ignored.
	MetaKeys []string
	// Deprecated: the metadata postfix is fixed to "_meta_dict".
	MetaKeyPostfix string
}

func (o SaveDictOptions) legacyFields() []string {
	var fields []string
	if len(o.MetaKeys) > 0 {
		fields = append(fields, "MetaKeys")
	}
	if o.MetaKeyPostfix != "" {
		fields = append(fields, "MetaKeyPostfix")
	}
	return fields
}

// SaveDict persists selected keys of a record through an image saver.
// Saving is a pure side effect: the returned record has the same content
// as the input. Values at configured keys must be *volume.Volume; the
// metadata stored under "<key>_meta_dict" drives resampling and output
// path construction.
type SaveDict struct {
	mapTransform
	saver *imageio.Saver
}

// NewSaveDict builds the transform, resolving any named writer backend
// through the registry before the first Apply.
func NewSaveDict(keys []string, opts SaveDictOptions) (*SaveDict, error) {
	warnDeprecated("SaveDict", opts.legacyFields()...)

	base, err := newMapTransform(keys, opts.AllowMissingKeys)
	if err != nil {
		return nil, err
	}
	saver, err := imageio.NewSaver(opts.Saver)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build saver")
	}
	return &SaveDict{mapTransform: base, saver: saver}, nil
}

// SetOptions forwards four option bundles to the save service's
// configuration hooks, unvalidated, to take effect on the next save.
func (t *SaveDict) SetOptions(initOpts, dataOpts, metaOpts, writeOpts map[string]any) {
	t.saver.SetOptions(initOpts, dataOpts, metaOpts, writeOpts)
}

// Apply saves every configured key of data and returns a shallow copy
// with unchanged content. A failing key aborts the remaining keys; files
// already written stay written.
func (t *SaveDict) Apply(ctx context.Context, data record.Record) (record.Record, error) {
	d := data.Clone()
	err := t.forEachKey(d, func(key string) error {
		vol, ok := d[key].(*volume.Volume)
		if !ok {
			return goerr.Wrap(apperr.ErrUnsupportedValue,
				"save requires a volume value", goerr.V("key", key))
		}
		meta, _ := d[record.MetaKey(key)].(volume.Meta)
		if err := t.saver.Save(ctx, vol, meta); err != nil {
			return goerr.Wrap(err, "failed to save record key", goerr.V("key", key))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
