// Package pose dead-reckons a planar camera position from per-frame
// rigid motion estimates.
//
// Only position is accumulated. Orientation is deliberately not tracked:
// each step's rotation re-expresses the running displacement in the new
// frame and is then discarded.
package pose

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/flowpose/internal/flow"
)

// Accumulator composes incremental rotation/translation estimates into a
// cumulative motion vector expressed in the track's origin frame.
// Not safe for concurrent use; a track is driven by a single loop.
type Accumulator struct {
	angles       []float64
	translations []r2.Vec
	position     r2.Vec
}

// NewAccumulator returns an accumulator positioned at the origin.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Integrate records est in the history and folds it into the cumulative
// position, returning the updated position.
//
// The estimator reports the field's rotation; camera motion is the
// inverse, so the running vector is rotated by -RotationAngle before the
// new (unrotated) translation is added. No drift correction is applied.
func (a *Accumulator) Integrate(est flow.PoseEstimate) r2.Vec {
	a.angles = append(a.angles, est.RotationAngle)
	a.translations = append(a.translations, est.Translation)

	rotated := r2.Rotate(a.position, -est.RotationAngle, r2.Vec{})
	a.position = r2.Add(rotated, est.Translation)
	return a.position
}

// Position returns the current cumulative motion vector.
func (a *Accumulator) Position() r2.Vec {
	return a.position
}

// Steps returns how many estimates have been integrated.
func (a *Accumulator) Steps() int {
	return len(a.angles)
}

// Angles returns a copy of the rotation history in radians.
func (a *Accumulator) Angles() []float64 {
	out := make([]float64, len(a.angles))
	copy(out, a.angles)
	return out
}

// Translations returns a copy of the translation history.
func (a *Accumulator) Translations() []r2.Vec {
	out := make([]r2.Vec, len(a.translations))
	copy(out, a.translations)
	return out
}

// Reset re-initialises the track: history is cleared and the position
// returns to the origin.
func (a *Accumulator) Reset() {
	a.angles = nil
	a.translations = nil
	a.position = r2.Vec{}
}
