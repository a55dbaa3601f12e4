// Package odometry drives the per-step pipeline: capture a frame, compute
// flow against the previous frame, fit a rigid transform and fold it into
// the cumulative pose.
package odometry

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/flowpose/internal/capture"
	"github.com/banshee-data/flowpose/internal/flow"
	"github.com/banshee-data/flowpose/internal/monitoring"
	"github.com/banshee-data/flowpose/internal/pose"
	"github.com/banshee-data/flowpose/internal/sampler"
)

// ErrReadFailure is returned when a frame cannot be read and read failures
// are not being skipped.
var ErrReadFailure = errors.New("frame read failed")

// Options controls how the tracker reacts to unusable steps.
type Options struct {
	// SkipDegenerate logs and skips steps whose field has no finite
	// rotation instead of aborting.
	SkipDegenerate bool

	// SkipReadFailures logs and skips frames that could not be read
	// instead of aborting.
	SkipReadFailures bool

	// Estimator tunes the pose fit.
	Estimator flow.EstimatorOptions

	// MaxSteps stops Run after this many recorded steps. Zero means no
	// limit.
	MaxSteps int
}

// DefaultOptions skips read failures and aborts on degeneracy.
func DefaultOptions() Options {
	return Options{SkipReadFailures: true}
}

// Outcome classifies a processed capture.
type Outcome int

const (
	// OutcomeRecorded means a pose was integrated.
	OutcomeRecorded Outcome = iota
	// OutcomePrimed means the frame became the flow reference; no pose yet.
	OutcomePrimed
	// OutcomeSkippedRead means the frame could not be read.
	OutcomeSkippedRead
	// OutcomeSkippedDegenerate means the estimate was numerically degenerate.
	OutcomeSkippedDegenerate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomePrimed:
		return "primed"
	case OutcomeSkippedRead:
		return "skipped-read"
	case OutcomeSkippedDegenerate:
		return "skipped-degenerate"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// StepRecord is one integrated step.
type StepRecord struct {
	// Seq numbers recorded steps from zero. It keeps counting across Reset
	// so records stay unique per recorder.
	Seq        int
	FrameIndex int
	Timestamp  time.Duration
	Estimate   flow.PoseEstimate
	Position   r2.Vec
}

// Recorder persists integrated steps.
type Recorder interface {
	RecordStep(ctx context.Context, rec StepRecord) error
}

// Stats counts what the tracker has processed.
type Stats struct {
	Captures          int
	Recorded          int
	SkippedReads      int
	SkippedDegenerate int
}

// Result describes one call to Step.
type Result struct {
	Outcome Outcome
	Record  StepRecord
}

// Tracker runs the odometry pipeline over a capture input. It is not safe
// for concurrent use.
type Tracker struct {
	input     capture.Input
	provider  flow.Provider
	estimator *flow.Estimator
	acc       *pose.Accumulator
	recorder  Recorder
	opts      Options

	prev  image.Image
	seq   int
	stats Stats
}

// NewTracker builds a tracker. recorder may be nil.
func NewTracker(input capture.Input, provider flow.Provider, recorder Recorder, opts Options) *Tracker {
	return &Tracker{
		input:     input,
		provider:  provider,
		estimator: flow.NewEstimator(opts.Estimator),
		acc:       pose.NewAccumulator(),
		recorder:  recorder,
		opts:      opts,
	}
}

// Step captures one frame and processes it. It returns sampler.ErrExhausted
// when the input has run out.
func (t *Tracker) Step(ctx context.Context) (Result, error) {
	frame, err := t.input.Capture()
	if err != nil {
		return Result{}, err
	}
	t.stats.Captures++
	log := monitoring.Logger()

	if !frame.OK {
		if !t.opts.SkipReadFailures {
			return Result{}, fmt.Errorf("%w: frame %d", ErrReadFailure, frame.Index)
		}
		t.stats.SkippedReads++
		log.Warn().Str("input", t.input.Name()).Int("frame", frame.Index).Msg("skipping unreadable frame")
		return Result{Outcome: OutcomeSkippedRead}, nil
	}

	if t.prev == nil {
		t.prev = frame.Image
		return Result{Outcome: OutcomePrimed}, nil
	}

	field, err := t.provider.Flow(t.prev, frame.Image)
	t.prev = frame.Image
	if err != nil {
		return Result{}, fmt.Errorf("failed to compute flow at frame %d: %w", frame.Index, err)
	}

	est, err := t.estimator.Estimate(field)
	if err != nil {
		if t.opts.SkipDegenerate && errors.Is(err, flow.ErrNumericDegeneracy) {
			t.stats.SkippedDegenerate++
			log.Warn().Err(err).Int("frame", frame.Index).Msg("skipping degenerate step")
			return Result{Outcome: OutcomeSkippedDegenerate}, nil
		}
		return Result{}, fmt.Errorf("failed to estimate pose at frame %d: %w", frame.Index, err)
	}

	rec := StepRecord{
		Seq:        t.seq,
		FrameIndex: frame.Index,
		Timestamp:  frame.Timestamp,
		Estimate:   est,
		Position:   t.acc.Integrate(est),
	}
	t.seq++
	t.stats.Recorded++

	if t.recorder != nil {
		if err := t.recorder.RecordStep(ctx, rec); err != nil {
			return Result{}, fmt.Errorf("failed to record step %d: %w", rec.Seq, err)
		}
	}

	log.Debug().
		Int("seq", rec.Seq).
		Int("frame", rec.FrameIndex).
		Float64("angle", est.RotationAngle).
		Float64("x", rec.Position.X).
		Float64("y", rec.Position.Y).
		Msg("integrated step")
	return Result{Outcome: OutcomeRecorded, Record: rec}, nil
}

// Run steps until the input is exhausted, MaxSteps is reached or ctx is
// cancelled. Cancellation is checked between steps. Exhaustion is not an
// error.
func (t *Tracker) Run(ctx context.Context) (Stats, error) {
	for {
		if err := ctx.Err(); err != nil {
			return t.stats, err
		}
		if t.opts.MaxSteps > 0 && t.stats.Recorded >= t.opts.MaxSteps {
			return t.stats, nil
		}
		if _, err := t.Step(ctx); err != nil {
			// A wrapped ErrExhausted carries a release failure and is returned.
			if err == sampler.ErrExhausted {
				monitoring.Logf("input %s exhausted after %d captures, %d steps recorded",
					t.input.Name(), t.stats.Captures, t.stats.Recorded)
				return t.stats, nil
			}
			return t.stats, err
		}
	}
}

// Position returns the cumulative pose.
func (t *Tracker) Position() r2.Vec {
	return t.acc.Position()
}

// Accumulator exposes the pose history.
func (t *Tracker) Accumulator() *pose.Accumulator {
	return t.acc
}

// Stats returns the processing counters.
func (t *Tracker) Stats() Stats {
	return t.stats
}

// Reset re-initialises the track: the cumulative pose and history are
// cleared and the next frame becomes the new flow reference. Step sequence
// numbers continue from where they were.
func (t *Tracker) Reset() {
	t.acc.Reset()
	t.prev = nil
}

// Close releases the input and the flow provider.
func (t *Tracker) Close() error {
	return errors.Join(t.input.Destroy(), t.provider.Close())
}
