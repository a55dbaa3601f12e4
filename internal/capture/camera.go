//go:build gocv
// +build gocv

package capture

import (
	"fmt"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/banshee-data/flowpose/internal/timeutil"
)

// Camera captures frames from a video device through OpenCV.
type Camera struct {
	name    string
	capture *gocv.VideoCapture
	frame   gocv.Mat
	pre     Preprocess
	clock   timeutil.Clock
	started time.Time
	count   int
}

// OpenCamera opens device, which is either a numeric index or a device
// path, waits warmup for the sensor to settle and applies pre to every
// frame.
func OpenCamera(device string, pre Preprocess, warmup time.Duration, clock timeutil.Clock) (*Camera, error) {
	if err := pre.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	var id interface{} = device
	if n, err := strconv.Atoi(device); err == nil {
		id = n
	}
	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %s could not initialize", device)
	}
	if warmup > 0 {
		clock.Sleep(warmup)
	}
	return &Camera{
		name:    "camera:" + device,
		capture: vc,
		frame:   gocv.NewMat(),
		pre:     pre,
		clock:   clock,
	}, nil
}

// OpenDefaultCamera opens device 0 without preprocessing or warmup.
func OpenDefaultCamera(clock timeutil.Clock) (*Camera, error) {
	return OpenCamera("0", Preprocess{}, 0, clock)
}

// Capture grabs the next frame from the device.
func (c *Camera) Capture() (Frame, error) {
	if c.started.IsZero() {
		c.started = c.clock.Now()
	}
	f := Frame{Index: c.count, Timestamp: c.clock.Since(c.started)}
	c.count++

	if ok := c.capture.Read(&c.frame); !ok || c.frame.Empty() {
		return f, nil
	}
	img, err := c.frame.ToImage()
	if err != nil {
		return f, nil
	}
	f.OK = true
	f.Image = c.pre.Apply(img)
	return f, nil
}

// Destroy closes the device.
func (c *Camera) Destroy() error {
	if err := c.frame.Close(); err != nil {
		return fmt.Errorf("failed to close frame buffer: %w", err)
	}
	return c.capture.Close()
}

// Name identifies the input in logs.
func (c *Camera) Name() string {
	return c.name
}
