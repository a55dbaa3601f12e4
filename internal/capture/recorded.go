package capture

import (
	"fmt"

	"github.com/banshee-data/flowpose/internal/monitoring"
	"github.com/banshee-data/flowpose/internal/sampler"
	"github.com/banshee-data/flowpose/internal/timeutil"
)

// firstStepSeconds is the nominal interval reported for the first capture
// of a recorded input, before any interval has been measured.
const firstStepSeconds = 0.001

// Pacing reports how a recorded input kept up with wall-clock time on the
// last capture.
type Pacing struct {
	// StepSeconds is the wall-clock time since the previous capture.
	StepSeconds float64
	// OverallFPS is 1/StepSeconds, or zero before the first interval.
	OverallFPS float64
	// AlgorithmShare is the percentage of the interval spent outside frame
	// extraction, i.e. in the caller's processing.
	AlgorithmShare float64
}

// RecordedVideo replays a recorded source in real time: each capture
// advances the sampler by the wall-clock time since the previous capture,
// so slow processing skips frames instead of falling behind.
type RecordedVideo struct {
	name    string
	sampler *sampler.Sampler
	pre     Preprocess
	clock   timeutil.Clock
	watch   *timeutil.Stopwatch
	pacing  Pacing
}

// NewRecordedVideo wraps s, which must be in sampler.ModeElapsedTime.
func NewRecordedVideo(name string, s *sampler.Sampler, pre Preprocess, clock timeutil.Clock) (*RecordedVideo, error) {
	if mode := s.State().Mode; mode != sampler.ModeElapsedTime {
		return nil, fmt.Errorf("recorded video needs %v sampling, got %v", sampler.ModeElapsedTime, mode)
	}
	if err := pre.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RecordedVideo{
		name:    name,
		sampler: s,
		pre:     pre,
		clock:   clock,
		watch:   timeutil.NewStopwatch(clock),
	}, nil
}

// OpenRecordedVideo opens path with opener in elapsed-time mode.
func OpenRecordedVideo(opener sampler.Opener, path string, pre Preprocess, clock timeutil.Clock) (*RecordedVideo, error) {
	s, err := sampler.Open(opener, path, sampler.Options{Mode: sampler.ModeElapsedTime})
	if err != nil {
		return nil, err
	}
	rv, err := NewRecordedVideo("recorded:"+path, s, pre, clock)
	if err != nil {
		s.Release()
		return nil, err
	}
	return rv, nil
}

// Capture measures the time since the previous capture, advances the
// sampler by that much and returns the preprocessed frame.
func (r *RecordedVideo) Capture() (Frame, error) {
	start, elapsed, measured := r.watch.Lap()
	stepSeconds := firstStepSeconds
	if measured {
		stepSeconds = elapsed.Seconds()
		if err := r.sampler.SetStepSeconds(stepSeconds); err != nil {
			return Frame{}, err
		}
	}

	step, err := r.sampler.Next()
	if err != nil {
		return Frame{}, err
	}
	frame := frameFromStep(step, r.pre)

	extraction := r.clock.Since(start)
	r.pacing = Pacing{StepSeconds: stepSeconds}
	if measured && stepSeconds > 0 {
		r.pacing.OverallFPS = 1 / stepSeconds
	}
	if stepSeconds > 0 {
		r.pacing.AlgorithmShare = (stepSeconds - extraction.Seconds()) / stepSeconds * 100
	}

	monitoring.Logger().Debug().
		Str("input", r.name).
		Int("frame", step.Index).
		Float64("overall_fps", r.pacing.OverallFPS).
		Float64("algorithm_pct", r.pacing.AlgorithmShare).
		Msg("captured recorded frame")
	return frame, nil
}

// Pacing returns the timing of the last capture.
func (r *RecordedVideo) Pacing() Pacing {
	return r.pacing
}

// Metadata describes the underlying source.
func (r *RecordedVideo) Metadata() sampler.Metadata {
	return r.sampler.Metadata()
}

// Destroy releases the underlying source.
func (r *RecordedVideo) Destroy() error {
	return r.sampler.Release()
}

// Name identifies the input in logs.
func (r *RecordedVideo) Name() string {
	return r.name
}

// Sampled reads a sampler in one-by-one or fixed-increment mode without
// wall-clock pacing.
type Sampled struct {
	name    string
	sampler *sampler.Sampler
	pre     Preprocess
}

// NewSampled wraps s with preprocessing.
func NewSampled(name string, s *sampler.Sampler, pre Preprocess) (*Sampled, error) {
	if err := pre.Validate(); err != nil {
		return nil, err
	}
	return &Sampled{name: name, sampler: s, pre: pre}, nil
}

// Capture returns the sampler's next frame, preprocessed.
func (s *Sampled) Capture() (Frame, error) {
	step, err := s.sampler.Next()
	if err != nil {
		return Frame{}, err
	}
	return frameFromStep(step, s.pre), nil
}

// Metadata describes the underlying source.
func (s *Sampled) Metadata() sampler.Metadata {
	return s.sampler.Metadata()
}

// Destroy releases the underlying source.
func (s *Sampled) Destroy() error {
	return s.sampler.Release()
}

// Name identifies the input in logs.
func (s *Sampled) Name() string {
	return s.name
}

func frameFromStep(step sampler.Step, pre Preprocess) Frame {
	f := Frame{Index: step.Index, OK: step.OK, Timestamp: step.Timestamp}
	if step.OK {
		f.Image = pre.Apply(step.Frame)
	}
	return f
}
