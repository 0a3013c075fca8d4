package imageio

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/apperr"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

// DefaultLoadDType is the dtype loaded volumes are converted to unless
// the loader is configured otherwise.
const DefaultLoadDType = types.DTypeFloat32

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Reader is an explicit backend tried before all others.
	Reader interfaces.ImageReader
	// ReaderName requests a backend from the reader registry; resolved at
	// construction. Ignored when Reader is set.
	ReaderName string
	// DType converts loaded values; empty means DefaultLoadDType.
	DType types.DType
	// EnsureChannelFirst normalizes loaded volumes to channel-first layout
	// using the source's original channel dimension.
	EnsureChannelFirst bool
}

// Loader reads image files into volumes through an ordered list of
// reader backends. Candidates are tried last-registered-first, with
// built-in defaults at the end of the list.
type Loader struct {
	readers            []interfaces.ImageReader
	dtype              types.DType
	ensureChannelFirst bool
}

// NewLoader builds a loader, resolving a named reader through the
// registry before the first load.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	l := &Loader{
		readers:            defaultReaders(),
		dtype:              opts.DType,
		ensureChannelFirst: opts.EnsureChannelFirst,
	}
	if l.dtype == "" {
		l.dtype = DefaultLoadDType
	}

	switch {
	case opts.Reader != nil:
		l.Register(opts.Reader)
	case opts.ReaderName != "":
		r, err := NewReaderByName(opts.ReaderName)
		if err != nil {
			return nil, err
		}
		l.Register(r)
	}
	return l, nil
}

// Register prepends a reader so it is preferred over previously
// registered ones for inputs it accepts.
func (l *Loader) Register(r interfaces.ImageReader) {
	l.readers = append([]interfaces.ImageReader{r}, l.readers...)
}

// Load reads src into a volume plus metadata. src may be a file path, a
// slice of file paths (stacked along a new leading dimension, metadata
// taken from the first file), or an in-memory *volume.Volume (conversion
// only). override, when non-nil, is tried before every configured reader.
func (l *Loader) Load(ctx context.Context, src any, override interfaces.ImageReader) (*volume.Volume, volume.Meta, error) {
	switch v := src.(type) {
	case string:
		vol, meta, err := l.loadPath(ctx, v, override)
		if err != nil {
			return nil, nil, err
		}
		return l.finish(vol, meta)
	case []string:
		return l.loadStack(ctx, v, override)
	case *volume.Volume:
		meta := volume.Meta{
			volume.MetaAffine:       volume.IdentityAffine(),
			volume.MetaSpatialShape: append([]int(nil), v.Shape...),
		}
		return l.finish(v.Clone(), meta)
	}
	return nil, nil, goerr.Wrap(apperr.ErrUnsupportedValue,
		"loader accepts a path, a path list, or a volume", goerr.V("type", fmt.Sprintf("%T", src)))
}

func (l *Loader) loadStack(ctx context.Context, paths []string, override interfaces.ImageReader) (*volume.Volume, volume.Meta, error) {
	if len(paths) == 0 {
		return nil, nil, goerr.New("empty path list")
	}
	vols := make([]*volume.Volume, 0, len(paths))
	var meta volume.Meta
	for _, p := range paths {
		vol, m, err := l.loadPath(ctx, p, override)
		if err != nil {
			return nil, nil, err
		}
		if meta == nil {
			meta = m
		}
		vols = append(vols, vol)
	}
	stacked, err := volume.Stack(vols)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to stack loaded volumes", goerr.V("paths", paths))
	}
	// The stack dimension becomes the channel dimension.
	meta[volume.MetaOriginalChannelDim] = 0
	return l.finish(stacked, meta)
}

func (l *Loader) loadPath(ctx context.Context, path string, override interfaces.ImageReader) (*volume.Volume, volume.Meta, error) {
	var attempts []error

	// A one-shot override is attempted unconditionally: the caller asked
	// for this reader, so its Accepts claim is not consulted.
	if override != nil {
		vol, meta, err := override.Read(ctx, path)
		if err == nil {
			return vol, meta, nil
		}
		attempts = append(attempts, err)
	}

	for _, r := range l.readers {
		if !r.Accepts(path) {
			continue
		}
		vol, meta, err := r.Read(ctx, path)
		if err != nil {
			attempts = append(attempts, err)
			continue
		}
		return vol, meta, nil
	}

	return nil, nil, goerr.Wrap(apperr.ErrNoSuitableReader,
		"all candidate readers declined or failed",
		goerr.V("path", path), goerr.V("attempts", attempts))
}

func (l *Loader) finish(vol *volume.Volume, meta volume.Meta) (*volume.Volume, volume.Meta, error) {
	vol.ConvertDType(l.dtype)
	if l.ensureChannelFirst {
		if err := vol.EnsureChannelFirst(meta.ChannelDim()); err != nil {
			return nil, nil, goerr.Wrap(err, "failed to normalize channel layout",
				goerr.V("filename", meta.Filename()))
		}
	}
	return vol, meta, nil
}
