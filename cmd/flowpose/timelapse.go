package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/flowpose/internal/sampler"
	"github.com/banshee-data/flowpose/internal/timelapse"
)

func newTimelapseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timelapse",
		Short: "Export time-stamped stills and a combined video from a recording",
		Example: `  flowpose timelapse --image_path drive.mp4 --step 2
  flowpose timelapse --source frames/ --fps 10 --output-dir out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTimelapse(cmd.Context(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.String("image_path", "", "recorded video file or image directory")
	f.StringP("source", "s", "", "alias for --image_path")
	f.Float64("step", 0, "seconds between stills (default: every frame)")
	f.Float64("fps", 0, "frame rate of image directories")
	f.String("output-dir", "", "directory receiving outputs/ and the video")
	return cmd
}

func (a *app) runTimelapse(ctx context.Context, out io.Writer) error {
	path := a.cfg.GetSourcePath()
	if path == "" {
		return fmt.Errorf("--image_path is required")
	}
	opts, err := a.cfg.SamplerOptions()
	if err != nil {
		return err
	}
	if opts.Mode == sampler.ModeElapsedTime {
		return fmt.Errorf("timelapse cannot use %v sampling", opts.Mode)
	}

	s, err := sampler.Open(a.opener(), path, opts)
	if err != nil {
		return err
	}
	exp := timelapse.NewExporter(a.fs, timelapse.Options{
		OutputRoot: a.cfg.GetOutputDir(),
		NewVideo:   a.newVideo,
	})
	res, err := exp.Export(ctx, s)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d stills in %s", len(res.Stills), res.Dir)
	if res.Video != "" {
		fmt.Fprintf(out, ", video %s", res.Video)
	}
	if res.Skipped > 0 {
		fmt.Fprintf(out, ", %d unreadable frames skipped", res.Skipped)
	}
	fmt.Fprintln(out)
	return nil
}
