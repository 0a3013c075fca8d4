package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/voxkit/voxkit/pkg/cli/config"
	"github.com/voxkit/voxkit/pkg/domain/types"
)

func writePipeline(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yml")
	gt.NoError(t, os.WriteFile(path, []byte(body), 0600)).Required()
	return path
}

func TestLoadPipeline(t *testing.T) {
	path := writePipeline(t, `
keys: [img, seg]
load:
  dtype: float32
  ensure_channel_first: true
save:
  output_dir: /tmp/out
  output_postfix: pred
  output_ext: .nii.gz
  resample: false
  separate_folder: false
records:
  - img: /data/a.nii.gz
    seg: /data/a_seg.nii.gz
  - img: /data/b.nii.gz
    seg: /data/b_seg.nii.gz
`)

	p, err := config.LoadPipeline(path)
	gt.NoError(t, err).Required()

	gt.Equal(t, p.Keys, []string{"img", "seg"})
	gt.True(t, p.Load.EnsureChannelFirst)
	gt.Equal(t, len(p.Records), 2)
	gt.Equal(t, p.Records[1]["seg"], "/data/b_seg.nii.gz")

	opts, err := p.Save.SaverOptions()
	gt.NoError(t, err).Required()
	gt.Equal(t, opts.OutputDir, "/tmp/out")
	gt.Equal(t, opts.OutputPostfix, "pred")
	gt.False(t, opts.Resample)
	gt.False(t, opts.SeparateFolder)
}

func TestSaverOptionsDefaults(t *testing.T) {
	// Omitted fields keep the saver defaults, including the ones that
	// default to on.
	opts, err := config.SaveConfig{}.SaverOptions()
	gt.NoError(t, err).Required()

	gt.Equal(t, opts.OutputDir, ".")
	gt.Equal(t, opts.OutputPostfix, "trans")
	gt.Equal(t, opts.OutputExt, ".nii.gz")
	gt.True(t, opts.Resample)
	gt.True(t, opts.SqueezeEndDims)
	gt.True(t, opts.SeparateFolder)
	gt.True(t, opts.PrintLog)
	gt.Equal(t, opts.Mode, types.InterpNearest)
	gt.Equal(t, opts.PaddingMode, types.PadBorder)
}

func TestSaverOptionsInvalidValues(t *testing.T) {
	_, err := config.SaveConfig{Mode: "trilinear"}.SaverOptions()
	gt.Error(t, err)

	_, err = config.SaveConfig{DType: "complex128"}.SaverOptions()
	gt.Error(t, err)
}

func TestLoadPipelineValidation(t *testing.T) {
	t.Run("no keys", func(t *testing.T) {
		path := writePipeline(t, "records:\n  - img: a.nii\n")
		_, err := config.LoadPipeline(path)
		gt.Error(t, err)
	})

	t.Run("no records", func(t *testing.T) {
		path := writePipeline(t, "keys: [img]\n")
		_, err := config.LoadPipeline(path)
		gt.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := writePipeline(t, "keys: [img\n")
		_, err := config.LoadPipeline(path)
		gt.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadPipeline(filepath.Join(t.TempDir(), "nope.yml"))
		gt.Error(t, err)
	})
}
