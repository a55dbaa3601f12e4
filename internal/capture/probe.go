package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/flowpose/internal/monitoring"
	"github.com/banshee-data/flowpose/internal/sampler"
	"github.com/banshee-data/flowpose/internal/timeutil"
)

// DefaultWarmup is how long a live camera is given to settle after opening.
const DefaultWarmup = time.Second

// Prober chooses an input by trying, in order, a live camera, a recorded
// source when a path is given, and the default camera device. A nil
// function skips that candidate.
type Prober struct {
	Live     func() (Input, error)
	Recorded func(path string) (Input, error)
	Default  func() (Input, error)
}

// Select returns the first input that opens. When a path is given and the
// live camera is unavailable, a failure to open the recording is returned
// rather than falling back to the default device.
func (p Prober) Select(path string) (Input, error) {
	var errs []error
	if p.Live != nil {
		in, err := p.Live()
		if err == nil {
			return in, nil
		}
		monitoring.Logf("live camera unavailable: %v", err)
		errs = append(errs, fmt.Errorf("live: %w", err))
	}

	if path != "" {
		if p.Recorded == nil {
			return nil, fmt.Errorf("%w: no recorded input for %s", ErrNoInput, path)
		}
		in, err := p.Recorded(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open recorded input: %w", err)
		}
		return in, nil
	}

	if p.Default != nil {
		in, err := p.Default()
		if err == nil {
			return in, nil
		}
		errs = append(errs, fmt.Errorf("default: %w", err))
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no candidates configured", ErrNoInput)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoInput, errors.Join(errs...))
}

// ProbeConfig configures NewProber.
type ProbeConfig struct {
	// LiveDevice names the live camera; empty skips it.
	LiveDevice string
	Warmup     time.Duration
	Preprocess Preprocess

	// Opener opens recorded sources.
	Opener sampler.Opener
	// Paced replays recordings in real time; otherwise Options applies.
	Paced   bool
	Options sampler.Options

	// UseDefaultDevice allows falling back to camera 0.
	UseDefaultDevice bool
	Clock            timeutil.Clock
}

// NewProber builds a Prober from cfg using the OpenCV cameras and the
// configured recorded-source opener.
func NewProber(cfg ProbeConfig) Prober {
	var p Prober
	if cfg.LiveDevice != "" {
		p.Live = func() (Input, error) {
			c, err := OpenCamera(cfg.LiveDevice, cfg.Preprocess, cfg.Warmup, cfg.Clock)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}
	if cfg.Opener != nil {
		p.Recorded = func(path string) (Input, error) {
			return OpenRecorded(cfg.Opener, path, cfg.Paced, cfg.Options, cfg.Preprocess, cfg.Clock)
		}
	}
	if cfg.UseDefaultDevice {
		p.Default = func() (Input, error) {
			c, err := OpenDefaultCamera(cfg.Clock)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}
	return p
}

// OpenRecorded opens path as a paced RecordedVideo or an unpaced Sampled
// input.
func OpenRecorded(opener sampler.Opener, path string, paced bool, opts sampler.Options, pre Preprocess, clock timeutil.Clock) (Input, error) {
	if paced {
		rv, err := OpenRecordedVideo(opener, path, pre, clock)
		if err != nil {
			return nil, err
		}
		return rv, nil
	}
	s, err := sampler.Open(opener, path, opts)
	if err != nil {
		return nil, err
	}
	in, err := NewSampled("recorded:"+path, s, pre)
	if err != nil {
		s.Release()
		return nil, err
	}
	return in, nil
}
