//go:build !gocv
// +build !gocv

package sampler

import "fmt"

// OpenVideo reports that video decoding is unavailable. Build with
// -tags=gocv to enable it, or use an ImageSequence.
func OpenVideo(path string) (FrameSource, error) {
	return nil, fmt.Errorf("%w: %s: %w", ErrResourceInit, path, ErrVideoUnsupported)
}
