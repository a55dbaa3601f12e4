// Package timelapse writes sampled frames of a recording to disk as
// time-stamped JPEG stills and, when OpenCV is available, a combined video.
package timelapse

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/banshee-data/flowpose/internal/fsutil"
	"github.com/banshee-data/flowpose/internal/monitoring"
	"github.com/banshee-data/flowpose/internal/sampler"
)

const (
	// OutputsDir is the directory, relative to the output root, holding the
	// per-resolution still folders.
	OutputsDir = "outputs"
	// VideoName is the combined video written to the output root.
	VideoName = "output.mp4"
	// DefaultJPEGQuality matches the OpenCV imwrite default.
	DefaultJPEGQuality = 95
)

// ErrVideoUnavailable is returned by a VideoWriterFactory that cannot
// encode video in this build. The exporter then writes stills only.
var ErrVideoUnavailable = errors.New("video encoding requires building with -tags=gocv")

// VideoWriter appends frames to an encoded video.
type VideoWriter interface {
	Write(frame image.Image) error
	Close() error
}

// VideoWriterFactory opens a VideoWriter at path.
type VideoWriterFactory func(path string, fps float64, width, height int) (VideoWriter, error)

// Options configures an Exporter.
type Options struct {
	// OutputRoot is where OutputsDir and VideoName are created.
	OutputRoot  string
	JPEGQuality int
	// NewVideo opens the combined video; nil writes stills only.
	NewVideo VideoWriterFactory
}

// Result summarises an export.
type Result struct {
	Dir     string
	Stills  []string
	Video   string
	Skipped int
}

// Exporter writes a sampler's frames to disk.
type Exporter struct {
	fs   fsutil.FileSystem
	opts Options
}

// NewExporter returns an exporter writing through fs.
func NewExporter(fs fsutil.FileSystem, opts Options) *Exporter {
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	return &Exporter{fs: fs, opts: opts}
}

// Export drains s, writing every readable frame as a still named by its
// stream time and appending it to the combined video. Unreadable frames are
// counted and skipped. Cancellation is checked between frames; the sampler
// is released on every return path.
func (e *Exporter) Export(ctx context.Context, s *sampler.Sampler) (res Result, err error) {
	defer func() {
		if rerr := s.Release(); rerr != nil && err == nil {
			err = fmt.Errorf("failed to release source: %w", rerr)
		}
	}()

	meta := s.Metadata()
	res.Dir = filepath.Join(e.opts.OutputRoot, OutputsDir, fmt.Sprintf("%dx%d", meta.Width, meta.Height))
	if err := e.fs.MkdirAll(res.Dir, 0755); err != nil {
		return res, fmt.Errorf("failed to create %s: %w", res.Dir, err)
	}

	video, videoPath, err := e.openVideo(meta)
	if err != nil {
		return res, err
	}
	if video != nil {
		res.Video = videoPath
		defer func() {
			if cerr := video.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to finalise video: %w", cerr)
			}
		}()
	}

	for step, serr := range s.All() {
		if serr != nil {
			return res, serr
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !step.OK {
			res.Skipped++
			continue
		}
		if video != nil {
			if err := video.Write(step.Frame); err != nil {
				return res, fmt.Errorf("failed to append frame %d to video: %w", step.Index, err)
			}
		}
		path := filepath.Join(res.Dir, StillName(meta.Width, meta.Height, step.Index, meta.FPS))
		if err := e.writeJPEG(path, step.Frame); err != nil {
			return res, err
		}
		res.Stills = append(res.Stills, path)
	}

	monitoring.Logger().Info().
		Str("dir", res.Dir).
		Int("stills", len(res.Stills)).
		Int("skipped", res.Skipped).
		Str("video", res.Video).
		Msg("timelapse exported")
	return res, nil
}

func (e *Exporter) openVideo(meta sampler.Metadata) (VideoWriter, string, error) {
	if e.opts.NewVideo == nil {
		return nil, "", nil
	}
	path := filepath.Join(e.opts.OutputRoot, VideoName)
	w, err := e.opts.NewVideo(path, meta.FPS, meta.Width, meta.Height)
	if errors.Is(err, ErrVideoUnavailable) {
		monitoring.Logf("writing stills only: %v", err)
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open video %s: %w", path, err)
	}
	return w, path, nil
}

func (e *Exporter) writeJPEG(path string, img image.Image) error {
	w, err := e.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(e.opts.JPEGQuality)); err != nil {
		w.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return w.Close()
}

// StillName formats the file name of the still at frame index:
// output_{W}x{H}_{HH}_{MM}_{SS}_{mmm}.jpg, where the time is the frame's
// offset into the recording.
func StillName(width, height, index int, fps float64) string {
	var secs float64
	if fps > 0 {
		secs = float64(index) / fps
	}
	hours := int(secs / 3600)
	minutes := int(secs/60) % 60
	seconds := int(secs) % 60
	millis := int((secs - float64(int(secs))) * 1000)
	return fmt.Sprintf("output_%dx%d_%02d_%02d_%02d_%03d.jpg", width, height, hours, minutes, seconds, millis)
}
