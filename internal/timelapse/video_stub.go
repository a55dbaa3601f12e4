//go:build !gocv
// +build !gocv

package timelapse

// NewVideoWriter returns ErrVideoUnavailable; the exporter falls back to
// stills only.
func NewVideoWriter(path string, fps float64, width, height int) (VideoWriter, error) {
	return nil, ErrVideoUnavailable
}
