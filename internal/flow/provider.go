package flow

import "image"

// Provider computes a dense optical-flow field from prev to next.
// Implementations wrap an external algorithm; the estimator only consumes
// their output.
type Provider interface {
	Flow(prev, next image.Image) (VectorField, error)
	Close() error
}

// FarnebackParams are the Gunnar Farneback dense-flow parameters.
type FarnebackParams struct {
	PyrScale   float64
	Levels     int
	WinSize    int
	Iterations int
	PolyN      int
	PolySigma  float64
}

// DefaultFarnebackParams returns the parameters used by the OpenCV samples.
func DefaultFarnebackParams() FarnebackParams {
	return FarnebackParams{
		PyrScale:   0.5,
		Levels:     3,
		WinSize:    15,
		Iterations: 3,
		PolyN:      5,
		PolySigma:  1.2,
	}
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(prev, next image.Image) (VectorField, error)

// Flow calls f(prev, next).
func (f ProviderFunc) Flow(prev, next image.Image) (VectorField, error) {
	return f(prev, next)
}

// Close is a no-op.
func (ProviderFunc) Close() error { return nil }
