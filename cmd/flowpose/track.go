package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/flowpose/internal/capture"
	"github.com/banshee-data/flowpose/internal/monitoring"
	"github.com/banshee-data/flowpose/internal/odometry"
	"github.com/banshee-data/flowpose/internal/report"
	"github.com/banshee-data/flowpose/internal/storage/sqlite"
)

type trackOpts struct {
	notes string
	png   string
	html  string
}

func newTrackCmd(a *app) *cobra.Command {
	var o trackOpts
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Integrate camera motion from a camera or recording into a stored track",
		Example: `  flowpose track --source drive.mp4 --step 0.5 --png track.png
  flowpose track --source frames/ --fps 10 --mode one-by-one
  flowpose track --live-device 0 --max-steps 300`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTrack(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}

	f := cmd.Flags()
	f.StringP("source", "s", "", "recorded video file or image directory")
	f.Float64("step", 0, "seconds to advance per step (default: every frame)")
	f.String("mode", "", "sampling mode: one-by-one, fixed-increment or elapsed-time")
	f.Float64("fps", 0, "frame rate of image directories")
	f.String("live-device", "", "live camera device tried before the recording")
	f.Float64("crop", 0, "centre crop factor in (0, 1]")
	f.Int("max-width", 0, "downscale frames wider than this")
	f.Bool("flip", false, "mirror frames horizontally")
	f.Bool("top-decile", false, "centroid from the strongest 10% of flow vectors")
	f.Bool("principal-axis", false, "rotation from the largest-eigenvalue axis")
	f.Bool("skip-degenerate", false, "skip degenerate steps instead of aborting")
	f.Int("max-steps", 0, "stop after this many recorded steps")
	f.StringVar(&o.notes, "notes", "", "free-form notes stored with the track")
	f.StringVar(&o.png, "png", "", "write the trajectory plot to this PNG file")
	f.StringVar(&o.html, "html", "", "write the interactive trajectory chart to this HTML file")
	return cmd
}

func (a *app) runTrack(ctx context.Context, out io.Writer, o trackOpts) (err error) {
	cfg := a.cfg
	opts, err := cfg.SamplerOptions()
	if err != nil {
		return err
	}

	prober := capture.NewProber(capture.ProbeConfig{
		LiveDevice:       cfg.GetLiveDevice(),
		Warmup:           cfg.GetWarmup(),
		Preprocess:       cfg.Preprocess(),
		Opener:           a.opener(),
		Paced:            cfg.Paced(),
		Options:          opts,
		UseDefaultDevice: cfg.GetUseDefaultDevice(),
		Clock:            a.clock,
	})
	in, err := prober.Select(cfg.GetSourcePath())
	if err != nil {
		return err
	}

	provider, err := a.newProvider(cfg.FarnebackParams())
	if err != nil {
		return errors.Join(fmt.Errorf("failed to create flow provider: %w", err), in.Destroy())
	}

	db, err := sqlite.Open(cfg.GetDBPath())
	if err != nil {
		return errors.Join(err, in.Destroy(), provider.Close())
	}
	defer db.Close()
	store := sqlite.NewTrackStore(db.DB)

	params, err := json.Marshal(cfg)
	if err != nil {
		return errors.Join(err, in.Destroy(), provider.Close())
	}
	track := &sqlite.Track{Source: in.Name(), Mode: opts.Mode.String(), ParamsJSON: params, Notes: o.notes}
	if meta, ok := capture.SourceMetadata(in); ok {
		track.FPS = meta.FPS
	} else {
		track.Mode = "live"
	}
	if err := store.CreateTrack(ctx, track); err != nil {
		return errors.Join(err, in.Destroy(), provider.Close())
	}

	tracker := odometry.NewTracker(in, provider, store.Recorder(track.TrackID), cfg.TrackerOptions())
	defer func() {
		if cerr := tracker.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	log := monitoring.Logger().With().Str("track_id", track.TrackID).Str("input", in.Name()).Logger()
	log.Info().Str("mode", track.Mode).Msg("tracking started")

	stats, runErr := tracker.Run(ctx)
	pos := tracker.Position()
	log.Info().
		Int("captures", stats.Captures).
		Int("recorded", stats.Recorded).
		Int("skipped_reads", stats.SkippedReads).
		Int("skipped_degenerate", stats.SkippedDegenerate).
		Float64("x", pos.X).
		Float64("y", pos.Y).
		Msg("tracking finished")
	fmt.Fprintf(out, "track %s: %d steps, final position (%.3f, %.3f)\n", track.TrackID, stats.Recorded, pos.X, pos.Y)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	// An interrupted run keeps its recorded steps.
	return a.writeReports(context.WithoutCancel(ctx), store, track, o.png, o.html)
}

// writeReports renders the stored steps of track to the requested files.
func (a *app) writeReports(ctx context.Context, store *sqlite.TrackStore, track *sqlite.Track, pngPath, htmlPath string) error {
	if pngPath == "" && htmlPath == "" {
		return nil
	}
	steps, err := store.Steps(ctx, track.TrackID)
	if err != nil {
		return err
	}
	traj := report.NewTrajectory(fmt.Sprintf("%s (%s)", track.Source, track.Mode), steps)
	if pngPath != "" {
		if err := report.WriteTrajectoryPNG(a.fs, pngPath, traj); err != nil {
			return err
		}
	}
	if htmlPath != "" {
		if err := report.WriteTrajectoryHTML(a.fs, htmlPath, traj); err != nil {
			return err
		}
	}
	return nil
}
