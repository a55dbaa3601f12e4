package timeutil

import "time"

// Stopwatch measures the time between consecutive laps.
type Stopwatch struct {
	clock   Clock
	last    time.Time
	started bool
}

// NewStopwatch returns a stopwatch reading clock. A nil clock uses
// RealClock.
func NewStopwatch(clock Clock) *Stopwatch {
	if clock == nil {
		clock = RealClock{}
	}
	return &Stopwatch{clock: clock}
}

// Lap records a lap at the current time. It returns the time since the
// previous lap and false on the first call.
func (s *Stopwatch) Lap() (time.Time, time.Duration, bool) {
	now := s.clock.Now()
	if !s.started {
		s.started = true
		s.last = now
		return now, 0, false
	}
	d := now.Sub(s.last)
	s.last = now
	return now, d, true
}

// SinceLap returns the time elapsed since the last lap, or zero before the
// first one.
func (s *Stopwatch) SinceLap() time.Duration {
	if !s.started {
		return 0
	}
	return s.clock.Since(s.last)
}

// Reset forgets the previous lap.
func (s *Stopwatch) Reset() {
	s.started = false
	s.last = time.Time{}
}
