// Package sampler walks a frame source in one of three temporal modes and
// guarantees the source is released exactly once on every exit path.
package sampler

import (
	"image"
	"time"
)

// Metadata describes a frame source. FrameCount is the total number of
// frames reported by the source; FPS is frames per second.
type Metadata struct {
	FPS        float64
	FrameCount int
	Width      int
	Height     int
}

// Duration returns the playback length implied by FrameCount and FPS.
func (m Metadata) Duration() time.Duration {
	if m.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(m.FrameCount) / m.FPS * float64(time.Second))
}

// FrameSource is a seekable, indexable sequence of frames.
type FrameSource interface {
	// Metadata returns the source's frame rate, length and dimensions.
	Metadata() Metadata

	// Read returns the frame at the current position and advances it.
	// ok is false when no frame could be decoded; err is reserved for
	// failures of the underlying resource.
	Read() (frame image.Image, ok bool, err error)

	// Seek positions the source so the next Read returns frame index.
	Seek(index int) error

	// Release frees the underlying resource.
	Release() error
}

// Opener opens a FrameSource from a path or identifier.
type Opener func(path string) (FrameSource, error)
