package flow

import "errors"

var (
	// ErrEmptyField is returned when a field has no cells.
	ErrEmptyField = errors.New("flow: empty vector field")

	// ErrFieldShape is returned when a field's data length does not match
	// Rows*Cols*2.
	ErrFieldShape = errors.New("flow: vector field shape mismatch")

	// ErrNumericDegeneracy is returned when the covariance or its
	// eigendecomposition cannot produce a finite estimate. It is fatal for
	// the current step only; the caller owns the recovery policy.
	ErrNumericDegeneracy = errors.New("flow: numeric degeneracy")

	// ErrProviderUnavailable is returned by the stub provider when OpenCV
	// support is not compiled in.
	ErrProviderUnavailable = errors.New("flow: dense optical flow not compiled in (requires gocv build tag)")
)
