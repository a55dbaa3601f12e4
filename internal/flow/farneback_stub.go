//go:build !gocv
// +build !gocv

package flow

import "image"

// Farneback is a stub when OpenCV support is not compiled in.
type Farneback struct{}

// NewFarneback returns ErrProviderUnavailable. Build with -tags=gocv to
// enable dense optical flow.
func NewFarneback(params FarnebackParams) (*Farneback, error) {
	return nil, ErrProviderUnavailable
}

// Flow returns ErrProviderUnavailable.
func (f *Farneback) Flow(prev, next image.Image) (VectorField, error) {
	return VectorField{}, ErrProviderUnavailable
}

// Close is a no-op.
func (f *Farneback) Close() error { return nil }
