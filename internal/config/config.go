package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/banshee-data/flowpose/internal/capture"
	"github.com/banshee-data/flowpose/internal/flow"
	"github.com/banshee-data/flowpose/internal/odometry"
	"github.com/banshee-data/flowpose/internal/sampler"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/flowpose.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Default output locations.
const (
	DefaultDBPath    = "flowpose.db"
	DefaultOutputDir = "."
)

// Config holds every tunable of a flowpose run. Fields are pointers so that
// a partial file leaves the rest at their Get* defaults.
type Config struct {
	// Input
	SourcePath  *string  `json:"source_path,omitempty"`
	StepSeconds *float64 `json:"step_seconds,omitempty" validate:"omitempty,gt=0"`
	Mode        *string  `json:"mode,omitempty" validate:"omitempty,oneof=one-by-one fixed-increment elapsed-time"`
	FPS         *float64 `json:"fps,omitempty" validate:"omitempty,gt=0"` // image sequences only
	LiveDevice  *string  `json:"live_device,omitempty"`
	Warmup      *string  `json:"warmup,omitempty"` // duration string like "1s"
	UseDefault  *bool    `json:"use_default_device,omitempty"`

	// Preprocessing
	CropFactor *float64 `json:"crop_factor,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxWidth   *int     `json:"max_width,omitempty" validate:"omitempty,gte=0"`
	Flip       *bool    `json:"flip,omitempty"`

	// Estimator and tracker
	TopDecileCentroid *bool `json:"top_decile_centroid,omitempty"`
	PrincipalAxis     *bool `json:"principal_axis,omitempty"`
	SkipDegenerate    *bool `json:"skip_degenerate,omitempty"`
	SkipReadFailures  *bool `json:"skip_read_failures,omitempty"`
	MaxSteps          *int  `json:"max_steps,omitempty" validate:"omitempty,gte=0"`

	// Farneback
	PyrScale   *float64 `json:"pyr_scale,omitempty" validate:"omitempty,gt=0,lt=1"`
	Levels     *int     `json:"levels,omitempty" validate:"omitempty,gte=1"`
	WinSize    *int     `json:"winsize,omitempty" validate:"omitempty,gte=3"`
	Iterations *int     `json:"iterations,omitempty" validate:"omitempty,gte=1"`
	PolyN      *int     `json:"poly_n,omitempty" validate:"omitempty,oneof=5 7"`
	PolySigma  *float64 `json:"poly_sigma,omitempty" validate:"omitempty,gt=0"`

	// Outputs
	DBPath    *string `json:"db_path,omitempty"`
	OutputDir *string `json:"output_dir,omitempty"`
	LogLevel  *string `json:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
}

var validate = validator.New()

// EmptyConfig returns a Config with all fields set to nil.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks field ranges and the combinations between them.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if c.Warmup != nil && *c.Warmup != "" {
		if _, err := time.ParseDuration(*c.Warmup); err != nil {
			return fmt.Errorf("invalid warmup '%s': %w", *c.Warmup, err)
		}
	}
	if c.WinSize != nil && *c.WinSize%2 == 0 {
		return fmt.Errorf("winsize must be odd, got %d", *c.WinSize)
	}
	if mode, err := c.GetMode(); err != nil {
		return err
	} else if mode == sampler.ModeFixedIncrement && c.StepSeconds == nil {
		return fmt.Errorf("mode %s requires step_seconds", mode)
	}
	return nil
}

// Merge returns a copy of c with every field set in o taking precedence.
func (c *Config) Merge(o *Config) *Config {
	out := *c
	if o == nil {
		return &out
	}
	mergeField(&out.SourcePath, o.SourcePath)
	mergeField(&out.StepSeconds, o.StepSeconds)
	mergeField(&out.Mode, o.Mode)
	mergeField(&out.FPS, o.FPS)
	mergeField(&out.LiveDevice, o.LiveDevice)
	mergeField(&out.Warmup, o.Warmup)
	mergeField(&out.UseDefault, o.UseDefault)
	mergeField(&out.CropFactor, o.CropFactor)
	mergeField(&out.MaxWidth, o.MaxWidth)
	mergeField(&out.Flip, o.Flip)
	mergeField(&out.TopDecileCentroid, o.TopDecileCentroid)
	mergeField(&out.PrincipalAxis, o.PrincipalAxis)
	mergeField(&out.SkipDegenerate, o.SkipDegenerate)
	mergeField(&out.SkipReadFailures, o.SkipReadFailures)
	mergeField(&out.MaxSteps, o.MaxSteps)
	mergeField(&out.PyrScale, o.PyrScale)
	mergeField(&out.Levels, o.Levels)
	mergeField(&out.WinSize, o.WinSize)
	mergeField(&out.Iterations, o.Iterations)
	mergeField(&out.PolyN, o.PolyN)
	mergeField(&out.PolySigma, o.PolySigma)
	mergeField(&out.DBPath, o.DBPath)
	mergeField(&out.OutputDir, o.OutputDir)
	mergeField(&out.LogLevel, o.LogLevel)
	return &out
}

func mergeField[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// GetSourcePath returns the source_path value or the empty string.
func (c *Config) GetSourcePath() string {
	if c.SourcePath == nil {
		return ""
	}
	return *c.SourcePath
}

// GetMode returns the configured sampling mode. Without an explicit mode,
// step_seconds selects fixed increments and its absence reads every frame.
func (c *Config) GetMode() (sampler.Mode, error) {
	if c.Mode != nil {
		return sampler.ParseMode(*c.Mode)
	}
	return sampler.OptionsFor(c.StepSeconds).Mode, nil
}

// SamplerOptions returns the sampler options for recorded sources.
func (c *Config) SamplerOptions() (sampler.Options, error) {
	mode, err := c.GetMode()
	if err != nil {
		return sampler.Options{}, err
	}
	opts := sampler.Options{Mode: mode}
	if mode == sampler.ModeFixedIncrement && c.StepSeconds != nil {
		opts.IncrementSeconds = *c.StepSeconds
	}
	return opts, opts.Validate()
}

// Paced reports whether recordings are replayed against the wall clock.
func (c *Config) Paced() bool {
	mode, err := c.GetMode()
	return err == nil && mode == sampler.ModeElapsedTime
}

// GetFPS returns the image-sequence frame rate or the default.
func (c *Config) GetFPS() float64 {
	if c.FPS == nil {
		return sampler.DefaultSequenceFPS
	}
	return *c.FPS
}

// GetLiveDevice returns the live camera device or the empty string.
func (c *Config) GetLiveDevice() string {
	if c.LiveDevice == nil {
		return ""
	}
	return *c.LiveDevice
}

// GetWarmup parses and returns the warmup duration.
func (c *Config) GetWarmup() time.Duration {
	if c.Warmup == nil || *c.Warmup == "" {
		return capture.DefaultWarmup
	}
	d, err := time.ParseDuration(*c.Warmup)
	if err != nil {
		return capture.DefaultWarmup
	}
	return d
}

// GetUseDefaultDevice returns the use_default_device value or the default.
func (c *Config) GetUseDefaultDevice() bool {
	return c.UseDefault != nil && *c.UseDefault
}

// Preprocess returns the frame preprocessing settings.
func (c *Config) Preprocess() capture.Preprocess {
	var p capture.Preprocess
	if c.CropFactor != nil {
		p.CropFactor = *c.CropFactor
	}
	if c.MaxWidth != nil {
		p.MaxWidth = *c.MaxWidth
	}
	if c.Flip != nil {
		p.Flip = *c.Flip
	}
	return p
}

// EstimatorOptions returns the pose estimator options.
func (c *Config) EstimatorOptions() flow.EstimatorOptions {
	return flow.EstimatorOptions{
		TopDecileCentroid: c.TopDecileCentroid != nil && *c.TopDecileCentroid,
		PrincipalAxis:     c.PrincipalAxis != nil && *c.PrincipalAxis,
	}
}

// TrackerOptions returns the tracker policy, starting from
// odometry.DefaultOptions.
func (c *Config) TrackerOptions() odometry.Options {
	opts := odometry.DefaultOptions()
	if c.SkipDegenerate != nil {
		opts.SkipDegenerate = *c.SkipDegenerate
	}
	if c.SkipReadFailures != nil {
		opts.SkipReadFailures = *c.SkipReadFailures
	}
	if c.MaxSteps != nil {
		opts.MaxSteps = *c.MaxSteps
	}
	opts.Estimator = c.EstimatorOptions()
	return opts
}

// FarnebackParams returns the dense-flow parameters, defaulting each unset
// field.
func (c *Config) FarnebackParams() flow.FarnebackParams {
	p := flow.DefaultFarnebackParams()
	if c.PyrScale != nil {
		p.PyrScale = *c.PyrScale
	}
	if c.Levels != nil {
		p.Levels = *c.Levels
	}
	if c.WinSize != nil {
		p.WinSize = *c.WinSize
	}
	if c.Iterations != nil {
		p.Iterations = *c.Iterations
	}
	if c.PolyN != nil {
		p.PolyN = *c.PolyN
	}
	if c.PolySigma != nil {
		p.PolySigma = *c.PolySigma
	}
	return p
}

// GetDBPath returns the db_path value or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetOutputDir returns the output_dir value or the default.
func (c *Config) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return DefaultOutputDir
	}
	return *c.OutputDir
}

// GetLogLevel returns the log_level value or "info".
func (c *Config) GetLogLevel() string {
	if c.LogLevel == nil || *c.LogLevel == "" {
		return "info"
	}
	return *c.LogLevel
}
