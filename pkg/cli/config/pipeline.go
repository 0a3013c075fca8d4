package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/types"
	"github.com/voxkit/voxkit/pkg/service/imageio"
	"gopkg.in/yaml.v3"
)

// Pipeline describes a batch conversion job: which record keys to
// process, how to load them, how to save them, and the records
// themselves (key -> input file path).
type Pipeline struct {
	Keys    []string            `yaml:"keys"`
	Load    LoadConfig          `yaml:"load"`
	Save    SaveConfig          `yaml:"save"`
	Records []map[string]string `yaml:"records"`
}

// LoadConfig mirrors the load transform options.
type LoadConfig struct {
	Reader             string `yaml:"reader,omitempty"`
	DType              string `yaml:"dtype,omitempty"`
	EnsureChannelFirst bool   `yaml:"ensure_channel_first,omitempty"`
	AllowMissingKeys   bool   `yaml:"allow_missing_keys,omitempty"`
}

// SaveConfig mirrors the save service options. Pointer fields default
// to the saver's defaults when omitted.
type SaveConfig struct {
	OutputDir      string `yaml:"output_dir"`
	OutputPostfix  string `yaml:"output_postfix,omitempty"`
	OutputExt      string `yaml:"output_ext,omitempty"`
	Resample       *bool  `yaml:"resample,omitempty"`
	Mode           string `yaml:"mode,omitempty"`
	PaddingMode    string `yaml:"padding_mode,omitempty"`
	Scale          int    `yaml:"scale,omitempty"`
	DType          string `yaml:"dtype,omitempty"`
	OutputDType    string `yaml:"output_dtype,omitempty"`
	SqueezeEndDims *bool  `yaml:"squeeze_end_dims,omitempty"`
	DataRootDir    string `yaml:"data_root_dir,omitempty"`
	SeparateFolder *bool  `yaml:"separate_folder,omitempty"`
	PrintLog       *bool  `yaml:"print_log,omitempty"`
	OutputFormat   string `yaml:"output_format,omitempty"`
	Writer         string `yaml:"writer,omitempty"`

	// OutputBucket redirects saved files to a Cloud Storage bucket
	// instead of the local filesystem. OutputPrefix is prepended to
	// every object key.
	OutputBucket string `yaml:"output_bucket,omitempty"`
	OutputPrefix string `yaml:"output_prefix,omitempty"`
}

// LoadPipeline reads and validates a pipeline file.
func LoadPipeline(path string) (*Pipeline, error) {
	raw, err := os.ReadFile(path) // #nosec G304 - user-supplied config path
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read pipeline file", goerr.V("path", path))
	}
	var p Pipeline
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, goerr.Wrap(err, "failed to parse pipeline file", goerr.V("path", path))
	}
	if len(p.Keys) == 0 {
		return nil, goerr.New("pipeline needs at least one key", goerr.V("path", path))
	}
	if len(p.Records) == 0 {
		return nil, goerr.New("pipeline has no records", goerr.V("path", path))
	}
	return &p, nil
}

// SaverOptions converts the YAML save section into service options,
// starting from the saver defaults.
func (c SaveConfig) SaverOptions() (imageio.SaverOptions, error) {
	opts := imageio.DefaultSaverOptions()
	if c.OutputDir != "" {
		opts.OutputDir = c.OutputDir
	}
	if c.OutputPostfix != "" {
		opts.OutputPostfix = c.OutputPostfix
	}
	if c.OutputExt != "" {
		opts.OutputExt = c.OutputExt
	}
	if c.Resample != nil {
		opts.Resample = *c.Resample
	}
	if c.Mode != "" {
		mode, err := types.ParseInterpMode(c.Mode)
		if err != nil {
			return opts, err
		}
		opts.Mode = mode
	}
	if c.PaddingMode != "" {
		pad, err := types.ParsePadMode(c.PaddingMode)
		if err != nil {
			return opts, err
		}
		opts.PaddingMode = pad
	}
	opts.Scale = c.Scale
	if c.DType != "" {
		dt, err := types.ParseDType(c.DType)
		if err != nil {
			return opts, err
		}
		opts.DType = dt
	}
	if c.OutputDType != "" {
		dt, err := types.ParseDType(c.OutputDType)
		if err != nil {
			return opts, err
		}
		opts.OutputDType = dt
	}
	if c.SqueezeEndDims != nil {
		opts.SqueezeEndDims = *c.SqueezeEndDims
	}
	opts.DataRootDir = c.DataRootDir
	if c.SeparateFolder != nil {
		opts.SeparateFolder = *c.SeparateFolder
	}
	if c.PrintLog != nil {
		opts.PrintLog = *c.PrintLog
	}
	opts.OutputFormat = c.OutputFormat
	opts.WriterName = c.Writer
	return opts, nil
}
