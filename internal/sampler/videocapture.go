//go:build gocv
// +build gocv

package sampler

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// VideoCapture is a FrameSource over a video file decoded by OpenCV.
type VideoCapture struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
	meta    Metadata
}

// OpenVideo opens a video file and reads its capture properties.
func OpenVideo(path string) (FrameSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrResourceInit, path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s: capture not opened", ErrResourceInit, path)
	}
	return &VideoCapture{
		capture: vc,
		frame:   gocv.NewMat(),
		meta: Metadata{
			FPS:        vc.Get(gocv.VideoCaptureFPS),
			FrameCount: int(vc.Get(gocv.VideoCaptureFrameCount)),
			Width:      int(vc.Get(gocv.VideoCaptureFrameWidth)),
			Height:     int(vc.Get(gocv.VideoCaptureFrameHeight)),
		},
	}, nil
}

// Metadata returns the capture properties read at open.
func (v *VideoCapture) Metadata() Metadata {
	return v.meta
}

// Read grabs and decodes the next frame.
func (v *VideoCapture) Read() (image.Image, bool, error) {
	if ok := v.capture.Read(&v.frame); !ok || v.frame.Empty() {
		return nil, false, nil
	}
	img, err := v.frame.ToImage()
	if err != nil {
		return nil, false, nil
	}
	return img, true, nil
}

// Seek sets the capture position so the next Read returns frame index.
func (v *VideoCapture) Seek(index int) error {
	v.capture.Set(gocv.VideoCapturePosFrames, float64(index))
	return nil
}

// Release closes the capture and its frame buffer.
func (v *VideoCapture) Release() error {
	if err := v.frame.Close(); err != nil {
		return fmt.Errorf("failed to close frame buffer: %w", err)
	}
	return v.capture.Close()
}
