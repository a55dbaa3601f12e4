// Package capture turns cameras and recorded footage into a stream of
// preprocessed frames for the odometry tracker.
package capture

import (
	"errors"
	"image"
	"time"

	"github.com/banshee-data/flowpose/internal/sampler"
)

var (
	// ErrNoInput is returned when no input could be opened.
	ErrNoInput = errors.New("no capture input available")

	// ErrCameraUnavailable is returned by camera inputs when the binary was
	// built without OpenCV support.
	ErrCameraUnavailable = errors.New("camera capture requires building with -tags=gocv")
)

// Frame is one captured, preprocessed frame.
type Frame struct {
	// Index is the frame's position in the underlying source; live inputs
	// count captures.
	Index int
	// OK is false when the frame could not be read.
	OK        bool
	Image     image.Image
	Timestamp time.Duration
}

// Input is a source of frames. Capture returns sampler.ErrExhausted (or a
// wrapped form) once a recorded input runs out.
type Input interface {
	Capture() (Frame, error)
	Destroy() error
	Name() string
}

// SourceMetadata returns the metadata of a recorded input. Live inputs
// report false.
func SourceMetadata(in Input) (sampler.Metadata, bool) {
	m, ok := in.(interface{ Metadata() sampler.Metadata })
	if !ok {
		return sampler.Metadata{}, false
	}
	return m.Metadata(), true
}
