package cli

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/voxkit/voxkit/pkg/adapters/cs"
	"github.com/voxkit/voxkit/pkg/cli/config"
	"github.com/voxkit/voxkit/pkg/domain/model/record"
	"github.com/voxkit/voxkit/pkg/domain/types"
	"github.com/voxkit/voxkit/pkg/transform"
	"github.com/voxkit/voxkit/pkg/utils/safe"
	"golang.org/x/sync/errgroup"
)

func cmdConvert() *cli.Command {
	var (
		pipelinePath string
		key          string
		outputDir    string
		postfix      string
		ext          string
		jobs         int
	)

	return &cli.Command{
		Name:      "convert",
		Usage:     "Load images and save them in another format",
		ArgsUsage: "[input files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "pipeline",
				Aliases:     []string{"p"},
				Usage:       "YAML pipeline file (keys, load/save options, records)",
				Sources:     cli.EnvVars("VOXKIT_PIPELINE"),
				Destination: &pipelinePath,
			},
			&cli.StringFlag{
				Name:        "key",
				Usage:       "Record key for positional input files",
				Value:       "image",
				Destination: &key,
			},
			&cli.StringFlag{
				Name:        "output-dir",
				Aliases:     []string{"d"},
				Usage:       "Output directory",
				Value:       ".",
				Destination: &outputDir,
			},
			&cli.StringFlag{
				Name:        "postfix",
				Usage:       "Postfix appended to output file names",
				Value:       "trans",
				Destination: &postfix,
			},
			&cli.StringFlag{
				Name:        "ext",
				Usage:       "Output file extension",
				Value:       ".nii.gz",
				Destination: &ext,
			},
			&cli.IntFlag{
				Name:        "jobs",
				Aliases:     []string{"j"},
				Usage:       "Number of records converted in parallel",
				Value:       1,
				Destination: &jobs,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			pipe, err := buildPipeline(pipelinePath, c.Args().Slice(), key, outputDir, postfix, ext)
			if err != nil {
				return err
			}

			var loadDType types.DType
			if pipe.Load.DType != "" {
				if loadDType, err = types.ParseDType(pipe.Load.DType); err != nil {
					return goerr.Wrap(err, "invalid load dtype")
				}
			}

			loader, err := transform.NewLoadDict(pipe.Keys, transform.LoadDictOptions{
				ReaderName:         pipe.Load.Reader,
				DType:              loadDType,
				EnsureChannelFirst: pipe.Load.EnsureChannelFirst,
				AllowMissingKeys:   pipe.Load.AllowMissingKeys,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to build load transform")
			}

			saverOpts, err := pipe.Save.SaverOptions()
			if err != nil {
				return goerr.Wrap(err, "invalid save options")
			}
			if pipe.Save.OutputBucket != "" {
				client, err := cs.New(ctx, pipe.Save.OutputBucket, cs.WithPrefix(pipe.Save.OutputPrefix))
				if err != nil {
					return goerr.Wrap(err, "failed to open output bucket",
						goerr.V("bucket", pipe.Save.OutputBucket))
				}
				defer safe.Close(ctx, client)
				saverOpts.Storage = client
			}
			saver, err := transform.NewSaveDict(pipe.Keys, transform.SaveDictOptions{
				Saver:            saverOpts,
				AllowMissingKeys: pipe.Load.AllowMissingKeys,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to build save transform")
			}

			// Records run in parallel; each transform application itself is
			// synchronous and operates on its own record copy.
			grp, grpCtx := errgroup.WithContext(ctx)
			grp.SetLimit(int(jobs))
			for _, rec := range pipe.Records {
				data := make(record.Record, len(rec))
				for k, v := range rec {
					data[k] = v
				}
				grp.Go(func() error {
					loaded, err := loader.Apply(grpCtx, data, nil)
					if err != nil {
						return err
					}
					if _, err := saver.Apply(grpCtx, loaded); err != nil {
						return err
					}
					return nil
				})
			}
			if err := grp.Wait(); err != nil {
				return goerr.Wrap(err, "conversion failed")
			}

			ctxlog.From(ctx).Info("conversion finished", "records", len(pipe.Records))
			return nil
		},
	}
}

// buildPipeline resolves the job description from a pipeline file or
// from positional inputs plus flags.
func buildPipeline(path string, inputs []string, key, outputDir, postfix, ext string) (*config.Pipeline, error) {
	if path != "" {
		return config.LoadPipeline(path)
	}
	if len(inputs) == 0 {
		return nil, goerr.New("no pipeline file and no input files given")
	}
	pipe := &config.Pipeline{
		Keys: []string{key},
		Save: config.SaveConfig{
			OutputDir:     outputDir,
			OutputPostfix: postfix,
			OutputExt:     ext,
		},
	}
	for _, in := range inputs {
		pipe.Records = append(pipe.Records, map[string]string{key: in})
	}
	return pipe, nil
}
