//go:build gocv
// +build gocv

package timelapse

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Codec is the FourCC used for the combined video.
const Codec = "mp4v"

type gocvWriter struct {
	writer *gocv.VideoWriter
}

// NewVideoWriter opens an mp4v video through OpenCV.
func NewVideoWriter(path string, fps float64, width, height int) (VideoWriter, error) {
	vw, err := gocv.VideoWriterFile(path, Codec, fps, width, height, true)
	if err != nil {
		return nil, err
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("video writer for %s did not open", path)
	}
	return &gocvWriter{writer: vw}, nil
}

func (w *gocvWriter) Write(frame image.Image) error {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return err
	}
	defer mat.Close()
	return w.writer.Write(mat)
}

func (w *gocvWriter) Close() error {
	return w.writer.Close()
}
