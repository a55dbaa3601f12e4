package sampler

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/banshee-data/flowpose/internal/fsutil"
)

// DefaultSequenceFPS is the frame rate assumed for an image directory when
// none is given.
const DefaultSequenceFPS = 30.0

var sequenceExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ImageSequence is a FrameSource over a directory of still images, ordered
// by file name and played back at a declared frame rate.
type ImageSequence struct {
	fs       fsutil.FileSystem
	dir      string
	files    []string
	meta     Metadata
	pos      int
	released bool
}

// NewImageSequence lists dir and decodes its first frame to learn the
// frame size. fps <= 0 selects DefaultSequenceFPS.
func NewImageSequence(fsys fsutil.FileSystem, dir string, fps float64) (*ImageSequence, error) {
	if fps <= 0 {
		fps = DefaultSequenceFPS
	}
	names, err := fsys.ListFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list %s: %w", ErrResourceInit, dir, err)
	}
	var files []string
	for _, name := range names {
		if sequenceExtensions[strings.ToLower(filepath.Ext(name))] {
			files = append(files, filepath.Join(dir, name))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no image frames in %s", ErrResourceInit, dir)
	}

	seq := &ImageSequence{fs: fsys, dir: dir, files: files}
	first, err := seq.decode(files[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode first frame: %w", ErrResourceInit, err)
	}
	b := first.Bounds()
	seq.meta = Metadata{FPS: fps, FrameCount: len(files), Width: b.Dx(), Height: b.Dy()}
	return seq, nil
}

// ImageSequenceOpener returns an Opener reading directories from fsys.
func ImageSequenceOpener(fsys fsutil.FileSystem, fps float64) Opener {
	return func(path string) (FrameSource, error) {
		return NewImageSequence(fsys, path, fps)
	}
}

// Metadata returns the sequence metadata.
func (s *ImageSequence) Metadata() Metadata {
	return s.meta
}

// Read decodes the frame at the current position. A frame that fails to
// decode is reported with ok=false.
func (s *ImageSequence) Read() (image.Image, bool, error) {
	if s.released {
		return nil, false, errors.New("image sequence released")
	}
	if s.pos >= len(s.files) {
		return nil, false, nil
	}
	path := s.files[s.pos]
	s.pos++
	img, err := s.decode(path)
	if err != nil {
		return nil, false, nil
	}
	return img, true, nil
}

// Seek moves to frame index.
func (s *ImageSequence) Seek(index int) error {
	if index < 0 || index > len(s.files) {
		return fmt.Errorf("frame %d out of range [0, %d]", index, len(s.files))
	}
	s.pos = index
	return nil
}

// Release drops the file list.
func (s *ImageSequence) Release() error {
	s.released = true
	s.files = nil
	return nil
}

func (s *ImageSequence) decode(path string) (image.Image, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return imaging.Decode(f)
}
