package imageio

import (
	"context"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/adapters/fs"
	"github.com/voxkit/voxkit/pkg/domain/apperr"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
	"github.com/voxkit/voxkit/pkg/domain/model/volume"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

// SaverOptions configures a Saver. Start from DefaultSaverOptions and
// override fields; the zero value disables behaviors that default to on.
type SaverOptions struct {
	// OutputDir is the root directory for saved files.
	OutputDir string
	// OutputPostfix is appended to every output file stem.
	OutputPostfix string
	// OutputExt selects the output format by extension.
	OutputExt string
	// Resample resizes volumes back to the original spatial shape from
	// metadata before saving.
	Resample bool
	// Mode is the interpolation kernel used when resampling.
	Mode types.InterpMode
	// PaddingMode resolves out-of-grid samples during resampling.
	PaddingMode types.PadMode
	// Scale, when 255 or 65535, clips values to [0, 1] and scales them to
	// uint8 or uint16 range. Zero disables scaling.
	Scale int
	// DType is the computation dtype used before resampling.
	DType types.DType
	// OutputDType is the on-disk dtype. Ignored when Scale is set, since
	// scaling dictates an integer dtype.
	OutputDType types.DType
	// SqueezeEndDims drops trailing singleton dimensions after the
	// channel has been moved to the end.
	SqueezeEndDims bool
	// DataRootDir, when non-empty, is stripped from input paths to mirror
	// the input folder structure under OutputDir.
	DataRootDir string
	// SeparateFolder nests each output file in a folder named after its
	// stem.
	SeparateFolder bool
	// PrintLog emits a log line per saved file.
	PrintLog bool
	// OutputFormat overrides writer selection by registry name.
	OutputFormat string
	// Writer is an explicit writer backend. Takes precedence over
	// WriterName, OutputFormat and extension lookup.
	Writer interfaces.ImageWriter
	// WriterName requests a writer from the registry; resolved at
	// construction.
	WriterName string
	// Storage receives the encoded bytes. Defaults to the local
	// filesystem rooted at OutputDir.
	Storage interfaces.Storage
}

// DefaultSaverOptions returns the standard save configuration.
func DefaultSaverOptions() SaverOptions {
	return SaverOptions{
		OutputDir:      ".",
		OutputPostfix:  "trans",
		OutputExt:      ".nii.gz",
		Resample:       true,
		Mode:           types.InterpNearest,
		PaddingMode:    types.PadBorder,
		DType:          types.DTypeFloat64,
		OutputDType:    types.DTypeFloat32,
		SqueezeEndDims: true,
		SeparateFolder: true,
		PrintLog:       true,
	}
}

// Saver persists channel-first volumes through a writer backend and a
// storage adapter.
type Saver struct {
	opts   SaverOptions
	writer interfaces.ImageWriter

	storageOnce sync.Once
	storage     interfaces.Storage
	storageErr  error

	counter atomic.Uint64

	optMu     sync.Mutex
	initOpts  map[string]any
	dataOpts  map[string]any
	metaOpts  map[string]any
	writeOpts map[string]any
}

// NewSaver builds a saver. Named writers are resolved through the writer
// registry immediately; the default filesystem storage is created lazily
// on the first save so that construction performs no I/O.
func NewSaver(opts SaverOptions) (*Saver, error) {
	s := &Saver{opts: opts}

	if s.opts.Mode == "" {
		s.opts.Mode = types.InterpNearest
	}
	if s.opts.PaddingMode == "" {
		s.opts.PaddingMode = types.PadBorder
	}
	if s.opts.OutputDir == "" {
		s.opts.OutputDir = "."
	}

	switch {
	case opts.Writer != nil:
		s.writer = opts.Writer
	case opts.WriterName != "":
		w, err := NewWriterByName(opts.WriterName)
		if err != nil {
			return nil, err
		}
		s.writer = w
	case opts.OutputFormat != "":
		w, err := NewWriterByName(opts.OutputFormat)
		if err != nil {
			return nil, err
		}
		s.writer = w
	default:
		w, err := resolveWriterByExt(opts.OutputExt)
		if err != nil {
			return nil, err
		}
		s.writer = w
	}

	if opts.Storage != nil {
		s.storage = opts.Storage
		s.storageOnce.Do(func() {})
	}
	return s, nil
}

func resolveWriterByExt(ext string) (interfaces.ImageWriter, error) {
	if ext == "" {
		ext = ".nii.gz"
	}
	for _, w := range defaultWriters() {
		if w.Accepts(ext) {
			return w, nil
		}
	}
	return nil, goerr.Wrap(apperr.ErrUnsupportedExtension,
		"no writer claims the output extension", goerr.V("ext", ext))
}

// SetOptions stores four option bundles forwarded, unvalidated, to the
// writer on subsequent saves: backend construction options, data options,
// metadata options, and write-call options.
func (s *Saver) SetOptions(initOpts, dataOpts, metaOpts, writeOpts map[string]any) {
	s.optMu.Lock()
	defer s.optMu.Unlock()
	s.initOpts = mergeOpts(s.initOpts, initOpts)
	s.dataOpts = mergeOpts(s.dataOpts, dataOpts)
	s.metaOpts = mergeOpts(s.metaOpts, metaOpts)
	s.writeOpts = mergeOpts(s.writeOpts, writeOpts)
}

func mergeOpts(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Save runs the full pipeline on a channel-first volume: compute-dtype
// conversion, optional resampling to the metadata's original spatial
// shape, optional intensity scaling, channel-last squeeze, output-dtype
// conversion, encoding, and the write to storage.
func (s *Saver) Save(ctx context.Context, vol *volume.Volume, meta volume.Meta) error {
	if vol == nil {
		return goerr.Wrap(apperr.ErrUnsupportedValue, "cannot save a nil volume")
	}
	if err := vol.Validate(); err != nil {
		return goerr.Wrap(err, "invalid volume")
	}
	if meta == nil {
		meta = volume.Meta{}
	}

	out := vol.Clone()
	out.ConvertDType(s.opts.DType)

	if s.opts.Resample {
		resampled, err := s.maybeResample(out, meta)
		if err != nil {
			return err
		}
		out = resampled
	}

	if s.opts.Scale != 0 {
		if err := scaleIntensity(out, s.opts.Scale); err != nil {
			return err
		}
	}

	out.MoveChannelLast()
	if s.opts.SqueezeEndDims {
		out.SqueezeEnd()
	}
	if s.opts.Scale == 0 {
		out.ConvertDType(s.opts.OutputDType)
	}

	key := s.outputKey(meta)

	data, err := s.writer.Encode(out, meta, s.encodeOpts())
	if err != nil {
		return goerr.Wrap(err, "failed to encode volume", goerr.V("key", key))
	}

	storage, err := s.resolveStorage()
	if err != nil {
		return err
	}
	if err := storage.Put(ctx, key, data); err != nil {
		return goerr.Wrap(err, "failed to write output", goerr.V("key", key))
	}

	if s.opts.PrintLog {
		ctxlog.From(ctx).Info("saved image",
			"path", filepath.Join(s.opts.OutputDir, filepath.FromSlash(key)),
			"shape", out.Shape,
			"dtype", string(out.DType))
	}
	return nil
}

// maybeResample resizes the spatial dimensions back to the original
// spatial shape recorded by the loader, when one is present and differs.
func (s *Saver) maybeResample(vol *volume.Volume, meta volume.Meta) (*volume.Volume, error) {
	target := meta.SpatialShape()
	if target == nil || len(vol.Shape) < 2 {
		return vol, nil
	}
	spatial := vol.Shape[1:]
	if len(target) != len(spatial) || volume.EqualShape(target, spatial) {
		return vol, nil
	}
	resampled, err := resampleChannelFirst(vol, target, s.opts.Mode, s.opts.PaddingMode)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resample volume",
			goerr.V("filename", meta.Filename()))
	}
	return resampled, nil
}

// scaleIntensity clips values to [0, 1] and scales them to the target
// integer range.
func scaleIntensity(vol *volume.Volume, scale int) error {
	var dt types.DType
	switch scale {
	case 255:
		dt = types.DTypeUint8
	case 65535:
		dt = types.DTypeUint16
	default:
		return goerr.New("scale must be 255 or 65535", goerr.V("scale", scale))
	}
	for i, v := range vol.Data {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		vol.Data[i] = v * float64(scale)
	}
	vol.ConvertDType(dt)
	return nil
}

// outputKey builds the storage key (relative to OutputDir) for a volume:
// [rel_subpath/][stem/]stem_postfix[_patch]ext.
func (s *Saver) outputKey(meta volume.Meta) string {
	src := meta.Filename()

	var stem, relDir string
	if src == "" {
		stem = strconv.FormatUint(s.counter.Add(1)-1, 10)
	} else {
		base := filepath.Base(src)
		if i := strings.Index(base, "."); i > 0 {
			base = base[:i]
		}
		stem = base
		relDir = s.relSubdir(src)
	}

	name := stem
	if s.opts.OutputPostfix != "" {
		name += "_" + s.opts.OutputPostfix
	}
	if idx, ok := meta.PatchIndex(); ok {
		name += "_" + strconv.Itoa(idx)
	}
	name += s.opts.OutputExt

	parts := make([]string, 0, 3)
	if relDir != "" {
		parts = append(parts, relDir)
	}
	if s.opts.SeparateFolder {
		parts = append(parts, stem)
	}
	parts = append(parts, name)
	return path.Join(parts...)
}

// relSubdir mirrors the input folder structure under OutputDir when the
// input sits below DataRootDir.
func (s *Saver) relSubdir(src string) string {
	if s.opts.DataRootDir == "" {
		return ""
	}
	rel, err := filepath.Rel(s.opts.DataRootDir, filepath.Dir(src))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

func (s *Saver) encodeOpts() map[string]any {
	s.optMu.Lock()
	defer s.optMu.Unlock()
	opts := map[string]any{"output_ext": s.opts.OutputExt}
	for _, bundle := range []map[string]any{s.initOpts, s.dataOpts, s.metaOpts, s.writeOpts} {
		for k, v := range bundle {
			opts[k] = v
		}
	}
	return opts
}

func (s *Saver) resolveStorage() (interfaces.Storage, error) {
	s.storageOnce.Do(func() {
		client, err := fs.New(&fs.Config{BaseDirectory: s.opts.OutputDir})
		if err != nil {
			s.storageErr = goerr.Wrap(err, "failed to open output directory",
				goerr.V("dir", s.opts.OutputDir))
			return
		}
		s.storage = client
	})
	return s.storage, s.storageErr
}
