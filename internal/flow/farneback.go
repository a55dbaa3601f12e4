//go:build gocv
// +build gocv

package flow

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Farneback computes dense flow with OpenCV's Farneback algorithm.
type Farneback struct {
	params FarnebackParams
}

// NewFarneback returns a Farneback provider.
func NewFarneback(params FarnebackParams) (*Farneback, error) {
	return &Farneback{params: params}, nil
}

// Flow converts both frames to grayscale and returns the per-pixel flow.
func (f *Farneback) Flow(prev, next image.Image) (VectorField, error) {
	prevGray, err := grayMat(prev)
	if err != nil {
		return VectorField{}, fmt.Errorf("failed to convert previous frame: %w", err)
	}
	defer prevGray.Close()

	nextGray, err := grayMat(next)
	if err != nil {
		return VectorField{}, fmt.Errorf("failed to convert next frame: %w", err)
	}
	defer nextGray.Close()

	flowMat := gocv.NewMat()
	defer flowMat.Close()

	p := f.params
	gocv.CalcOpticalFlowFarneback(prevGray, nextGray, &flowMat,
		p.PyrScale, p.Levels, p.WinSize, p.Iterations, p.PolyN, p.PolySigma, 0)

	if flowMat.Empty() {
		return VectorField{}, fmt.Errorf("farneback produced an empty flow matrix")
	}

	raw, err := flowMat.DataPtrFloat32()
	if err != nil {
		return VectorField{}, fmt.Errorf("failed to read flow matrix: %w", err)
	}

	field := NewVectorField(flowMat.Rows(), flowMat.Cols())
	if len(raw) != len(field.Data) {
		return VectorField{}, fmt.Errorf("%w: flow matrix has %d values, want %d", ErrFieldShape, len(raw), len(field.Data))
	}
	for i, v := range raw {
		field.Data[i] = float64(v)
	}
	return field, nil
}

// Close releases nothing; Mats are freed per call.
func (f *Farneback) Close() error { return nil }

func grayMat(img image.Image) (gocv.Mat, error) {
	// ImageToMatRGB stores channels in BGR order.
	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer rgb.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(rgb, &gray, gocv.ColorBGRToGray)
	return gray, nil
}
