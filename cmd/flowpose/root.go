package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/banshee-data/flowpose/internal/config"
	"github.com/banshee-data/flowpose/internal/flow"
	"github.com/banshee-data/flowpose/internal/fsutil"
	"github.com/banshee-data/flowpose/internal/monitoring"
	"github.com/banshee-data/flowpose/internal/sampler"
	"github.com/banshee-data/flowpose/internal/timelapse"
	"github.com/banshee-data/flowpose/internal/timeutil"
	"github.com/banshee-data/flowpose/internal/version"
)

// app carries the resolved configuration and the collaborators commands
// are built from. Tests replace the OpenCV-backed factories.
type app struct {
	cfg     *config.Config
	cfgPath string

	fs          fsutil.FileSystem
	clock       timeutil.Clock
	newProvider func(flow.FarnebackParams) (flow.Provider, error)
	newVideo    timelapse.VideoWriterFactory
	openVideo   sampler.Opener
}

func newApp() *app {
	return &app{
		cfg:   config.EmptyConfig(),
		fs:    fsutil.OSFileSystem{},
		clock: timeutil.RealClock{},
		newProvider: func(p flow.FarnebackParams) (flow.Provider, error) {
			f, err := flow.NewFarneback(p)
			if err != nil {
				return nil, err
			}
			return f, nil
		},
		newVideo:  timelapse.NewVideoWriter,
		openVideo: sampler.OpenVideo,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "flowpose",
		Short:         "Visual odometry from dense optical flow",
		Long:          "Estimate a camera's planar trajectory from dense optical flow between sampled frames,\nstore the tracks in SQLite and export timelapses of recordings.",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd.Flags())
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to JSON config file (default: "+config.DefaultConfigPath+" if present)")
	root.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("db", "", "SQLite database path")

	root.AddCommand(
		newTrackCmd(a),
		newTimelapseCmd(a),
		newTracksCmd(a),
		newVersionCmd(),
	)
	return root
}

// loadConfig resolves configuration from the defaults file, then --config,
// then explicitly set flags.
func (a *app) loadConfig(flags *pflag.FlagSet) error {
	cfg := config.EmptyConfig()
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		def, err := config.LoadConfig(config.DefaultConfigPath)
		if err != nil {
			return fmt.Errorf("load defaults: %w", err)
		}
		cfg = def
	}
	if a.cfgPath != "" {
		fc, err := config.LoadConfig(a.cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = cfg.Merge(fc)
	}

	overrides, err := overridesFromFlags(flags)
	if err != nil {
		return err
	}
	cfg = cfg.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := monitoring.SetLevel(cfg.GetLogLevel()); err != nil {
		return err
	}
	a.cfg = cfg
	monitoring.Logger().Debug().Interface("config", cfg).Msg("configuration")
	return nil
}

// overridesFromFlags copies every flag the user set into a Config. Flags a
// command does not define are never reported as changed.
func overridesFromFlags(flags *pflag.FlagSet) (*config.Config, error) {
	o := config.EmptyConfig()
	var err error
	setFlag(flags, "source", flags.GetString, &o.SourcePath, &err)
	setFlag(flags, "image_path", flags.GetString, &o.SourcePath, &err)
	setFlag(flags, "step", flags.GetFloat64, &o.StepSeconds, &err)
	setFlag(flags, "mode", flags.GetString, &o.Mode, &err)
	setFlag(flags, "fps", flags.GetFloat64, &o.FPS, &err)
	setFlag(flags, "live-device", flags.GetString, &o.LiveDevice, &err)
	setFlag(flags, "crop", flags.GetFloat64, &o.CropFactor, &err)
	setFlag(flags, "max-width", flags.GetInt, &o.MaxWidth, &err)
	setFlag(flags, "flip", flags.GetBool, &o.Flip, &err)
	setFlag(flags, "top-decile", flags.GetBool, &o.TopDecileCentroid, &err)
	setFlag(flags, "principal-axis", flags.GetBool, &o.PrincipalAxis, &err)
	setFlag(flags, "skip-degenerate", flags.GetBool, &o.SkipDegenerate, &err)
	setFlag(flags, "max-steps", flags.GetInt, &o.MaxSteps, &err)
	setFlag(flags, "output-dir", flags.GetString, &o.OutputDir, &err)
	setFlag(flags, "db", flags.GetString, &o.DBPath, &err)
	setFlag(flags, "log-level", flags.GetString, &o.LogLevel, &err)
	return o, err
}

func setFlag[T any](flags *pflag.FlagSet, name string, get func(string) (T, error), dst **T, err *error) {
	if *err != nil || !flags.Changed(name) {
		return
	}
	v, gerr := get(name)
	if gerr != nil {
		*err = fmt.Errorf("flag --%s: %w", name, gerr)
		return
	}
	*dst = &v
}

// opener opens directories as image sequences and anything else as video.
func (a *app) opener() sampler.Opener {
	images := sampler.ImageSequenceOpener(a.fs, a.cfg.GetFPS())
	return func(path string) (sampler.FrameSource, error) {
		if _, err := a.fs.ListFiles(path); err == nil {
			return images(path)
		}
		return a.openVideo(path)
	}
}
