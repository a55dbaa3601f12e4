package sampler

import "errors"

var (
	// ErrResourceInit is returned when a frame source cannot be opened.
	ErrResourceInit = errors.New("frame source could not be opened")

	// ErrExhausted is returned once the next target frame lies past the end
	// of the source. The source has been released when it is returned.
	ErrExhausted = errors.New("frame source exhausted")

	// ErrInvalidOptions is returned for a negative, NaN or infinite step.
	ErrInvalidOptions = errors.New("invalid sampler options")
)

// ErrVideoUnsupported is returned by the video capture source when the
// binary was built without OpenCV support.
var ErrVideoUnsupported = errors.New("video capture requires building with -tags=gocv")
