package capture

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Preprocess describes the per-frame geometry applied before flow is
// computed. The zero value passes frames through unchanged.
type Preprocess struct {
	// CropFactor keeps this fraction of the width and height around the
	// frame centre. Values of 0 or 1 disable cropping.
	CropFactor float64

	// MaxWidth downscales frames wider than this, preserving aspect ratio.
	// Zero disables resizing.
	MaxWidth int

	// Flip mirrors the frame horizontally.
	Flip bool
}

// Validate checks the crop factor and width are in range.
func (p Preprocess) Validate() error {
	if p.CropFactor < 0 || p.CropFactor > 1 {
		return fmt.Errorf("crop factor must be within [0, 1], got %v", p.CropFactor)
	}
	if p.MaxWidth < 0 {
		return fmt.Errorf("max width must be non-negative, got %d", p.MaxWidth)
	}
	return nil
}

// IsIdentity reports whether Apply returns frames unchanged.
func (p Preprocess) IsIdentity() bool {
	return (p.CropFactor == 0 || p.CropFactor == 1) && p.MaxWidth == 0 && !p.Flip
}

// Apply crops, resizes and mirrors img in that order.
func (p Preprocess) Apply(img image.Image) image.Image {
	if img == nil || p.IsIdentity() {
		return img
	}
	out := img
	if p.CropFactor > 0 && p.CropFactor < 1 {
		b := out.Bounds()
		w := max(1, int(float64(b.Dx())*p.CropFactor))
		h := max(1, int(float64(b.Dy())*p.CropFactor))
		out = imaging.CropCenter(out, w, h)
	}
	if p.MaxWidth > 0 && out.Bounds().Dx() > p.MaxWidth {
		// Zero height preserves the aspect ratio.
		out = imaging.Resize(out, p.MaxWidth, 0, imaging.Lanczos)
	}
	if p.Flip {
		out = imaging.FlipH(out)
	}
	return out
}
