package sampler

import (
	"errors"
	"fmt"
	"image"
	"iter"
	"math"
	"strings"
	"sync"
	"time"
)

// Mode selects how far the sampler advances on each step.
type Mode int

const (
	// ModeOneByOne reads every frame sequentially.
	ModeOneByOne Mode = iota
	// ModeFixedIncrement advances by a fixed number of seconds per step.
	ModeFixedIncrement
	// ModeElapsedTime advances by the seconds last passed to SetStepSeconds.
	ModeElapsedTime
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeOneByOne:
		return "one-by-one"
	case ModeFixedIncrement:
		return "fixed-increment"
	case ModeElapsedTime:
		return "elapsed-time"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a configuration name into a Mode. The empty string
// maps to ModeOneByOne.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "one-by-one":
		return ModeOneByOne, nil
	case "fixed-increment":
		return ModeFixedIncrement, nil
	case "elapsed-time":
		return ModeElapsedTime, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidOptions, s)
	}
}

// Options configures a Sampler.
type Options struct {
	Mode Mode
	// IncrementSeconds is the step used by ModeFixedIncrement.
	IncrementSeconds float64
}

// OptionsFor maps an optional step in seconds to sampler options: nil
// reads every frame, anything else advances by that many seconds.
func OptionsFor(step *float64) Options {
	if step == nil {
		return Options{Mode: ModeOneByOne}
	}
	return Options{Mode: ModeFixedIncrement, IncrementSeconds: *step}
}

// Validate checks the options are usable.
func (o Options) Validate() error {
	switch o.Mode {
	case ModeOneByOne, ModeElapsedTime:
	case ModeFixedIncrement:
		if !validSeconds(o.IncrementSeconds) || o.IncrementSeconds == 0 {
			return fmt.Errorf("%w: increment must be a positive number of seconds, got %v", ErrInvalidOptions, o.IncrementSeconds)
		}
	default:
		return fmt.Errorf("%w: %v", ErrInvalidOptions, o.Mode)
	}
	return nil
}

// State is a snapshot of the sampler's position.
type State struct {
	Index              int
	Mode               Mode
	PendingStepSeconds float64
}

// Step is one frame yielded by the sampler. OK reports whether the frame
// could be read; a false OK is not an error.
type Step struct {
	Index     int
	OK        bool
	Frame     image.Image
	Timestamp time.Duration
}

// Sampler walks a FrameSource forward in time. It is not safe for
// concurrent use.
type Sampler struct {
	src   FrameSource
	meta  Metadata
	opts  Options
	state State

	done        bool
	releaseOnce sync.Once
	releaseErr  error
}

// New wraps src. The sampler takes ownership of src: it is released if the
// options or metadata are invalid and on every terminal path thereafter.
func New(src FrameSource, opts Options) (*Sampler, error) {
	s := &Sampler{
		src:   src,
		meta:  src.Metadata(),
		opts:  opts,
		state: State{Mode: opts.Mode},
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Join(err, s.Release())
	}
	if s.meta.FrameCount < 0 || (opts.Mode != ModeOneByOne && !(s.meta.FPS > 0)) {
		err := fmt.Errorf("%w: fps=%v frames=%d", ErrResourceInit, s.meta.FPS, s.meta.FrameCount)
		return nil, errors.Join(err, s.Release())
	}
	return s, nil
}

// Open opens path with opener and wraps the source in a Sampler.
func Open(opener Opener, path string, opts Options) (*Sampler, error) {
	src, err := opener(path)
	if err != nil {
		if errors.Is(err, ErrResourceInit) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrResourceInit, path, err)
	}
	return New(src, opts)
}

// Metadata returns the metadata captured when the sampler was created.
func (s *Sampler) Metadata() Metadata {
	return s.meta
}

// State returns a copy of the sampler's position.
func (s *Sampler) State() State {
	return s.state
}

// SetStepSeconds sets the advance used by the next ModeElapsedTime step.
func (s *Sampler) SetStepSeconds(seconds float64) error {
	if !validSeconds(seconds) {
		return fmt.Errorf("%w: step must be a non-negative number of seconds, got %v", ErrInvalidOptions, seconds)
	}
	s.state.PendingStepSeconds = seconds
	return nil
}

// Next advances to the next target frame and reads it.
//
// Once the target reaches the end of the source the source is released and
// ErrExhausted is returned; every later call returns ErrExhausted without
// touching the source. A seek or read error also releases the source.
func (s *Sampler) Next() (Step, error) {
	if s.done {
		return Step{}, ErrExhausted
	}

	// Compared as float64 so a huge step cannot overflow the index.
	next := float64(s.state.Index) + s.advance()
	if next >= float64(s.meta.FrameCount) {
		s.done = true
		if err := s.Release(); err != nil {
			return Step{}, fmt.Errorf("%w: failed to release source: %w", ErrExhausted, err)
		}
		return Step{}, ErrExhausted
	}
	target := int(next)

	if s.opts.Mode != ModeOneByOne {
		if err := s.src.Seek(target); err != nil {
			return Step{}, s.fail(fmt.Errorf("failed to seek to frame %d: %w", target, err))
		}
	}
	frame, ok, err := s.src.Read()
	if err != nil {
		return Step{}, s.fail(fmt.Errorf("failed to read frame %d: %w", target, err))
	}

	s.state.Index = target
	return Step{
		Index:     target,
		OK:        ok,
		Frame:     frame,
		Timestamp: s.timestamp(target),
	}, nil
}

// All ranges over the remaining steps. Iteration stops silently on
// exhaustion; any other error is yielded once and ends the sequence.
func (s *Sampler) All() iter.Seq2[Step, error] {
	return func(yield func(Step, error) bool) {
		for {
			step, err := s.Next()
			// A wrapped ErrExhausted carries a release failure and is yielded.
			if err == ErrExhausted {
				return
			}
			if !yield(step, err) || err != nil {
				return
			}
		}
	}
}

// Release frees the source and ends the sequence. It is safe to call more
// than once; only the first call reaches the source and its error is
// returned every time.
func (s *Sampler) Release() error {
	s.done = true
	s.releaseOnce.Do(func() {
		s.releaseErr = s.src.Release()
	})
	return s.releaseErr
}

// Done reports whether the sampler has reached a terminal state.
func (s *Sampler) Done() bool {
	return s.done
}

// advance returns the number of frames to move forward.
func (s *Sampler) advance() float64 {
	switch s.opts.Mode {
	case ModeFixedIncrement:
		return math.Ceil(s.opts.IncrementSeconds * s.meta.FPS)
	case ModeElapsedTime:
		return math.Ceil(s.state.PendingStepSeconds * s.meta.FPS)
	default:
		return 1
	}
}

func (s *Sampler) timestamp(index int) time.Duration {
	if !(s.meta.FPS > 0) {
		return 0
	}
	return time.Duration(float64(index) / s.meta.FPS * float64(time.Second))
}

func (s *Sampler) fail(err error) error {
	s.done = true
	if rerr := s.Release(); rerr != nil {
		return errors.Join(err, fmt.Errorf("failed to release source: %w", rerr))
	}
	return err
}

func validSeconds(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
