//go:build !gocv
// +build !gocv

package capture

import (
	"time"

	"github.com/banshee-data/flowpose/internal/timeutil"
)

// Camera is a stub when OpenCV support is not compiled in.
type Camera struct{}

// OpenCamera returns ErrCameraUnavailable. Build with -tags=gocv to
// enable device capture.
func OpenCamera(device string, pre Preprocess, warmup time.Duration, clock timeutil.Clock) (*Camera, error) {
	return nil, ErrCameraUnavailable
}

// OpenDefaultCamera returns ErrCameraUnavailable.
func OpenDefaultCamera(clock timeutil.Clock) (*Camera, error) {
	return nil, ErrCameraUnavailable
}

// Capture returns ErrCameraUnavailable.
func (c *Camera) Capture() (Frame, error) {
	return Frame{}, ErrCameraUnavailable
}

// Destroy is a no-op.
func (c *Camera) Destroy() error { return nil }

// Name identifies the input in logs.
func (c *Camera) Name() string { return "camera" }
