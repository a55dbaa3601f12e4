package sampler

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
)

// MockFrameSource implements FrameSource for testing. Frames are generated
// on demand as 1x1 grey images whose intensity is the frame index.
type MockFrameSource struct {
	mu sync.Mutex

	// Meta is returned by Metadata.
	Meta Metadata

	// Frames, when set, are returned instead of generated frames.
	Frames []image.Image

	// Position is the index the next Read returns.
	Position int

	// Reads records the position of every Read call.
	Reads []int

	// Seeks records every Seek target.
	Seeks []int

	// FailReads marks positions whose Read returns ok=false.
	FailReads map[int]bool

	// ReadError is returned by Read if set.
	ReadError error

	// SeekError is returned by Seek if set.
	SeekError error

	// ReleaseError is returned by Release if set.
	ReleaseError error

	// ReleaseCount counts calls to Release.
	ReleaseCount int
}

// NewMockFrameSource creates a source of frameCount generated frames.
func NewMockFrameSource(fps float64, frameCount int) *MockFrameSource {
	return &MockFrameSource{
		Meta:      Metadata{FPS: fps, FrameCount: frameCount, Width: 1, Height: 1},
		FailReads: make(map[int]bool),
	}
}

// Metadata returns the configured metadata.
func (m *MockFrameSource) Metadata() Metadata {
	return m.Meta
}

// Read returns the frame at Position and advances it.
func (m *MockFrameSource) Read() (image.Image, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReleaseCount > 0 {
		return nil, false, errors.New("source released")
	}
	pos := m.Position
	m.Reads = append(m.Reads, pos)
	if m.ReadError != nil {
		return nil, false, m.ReadError
	}
	m.Position++
	if m.FailReads[pos] || pos >= m.Meta.FrameCount {
		return nil, false, nil
	}
	if pos < len(m.Frames) {
		return m.Frames[pos], true, nil
	}
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: uint8(pos)})
	return img, true, nil
}

// Seek records the target and moves Position.
func (m *MockFrameSource) Seek(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Seeks = append(m.Seeks, index)
	if m.SeekError != nil {
		return m.SeekError
	}
	if index < 0 || index >= m.Meta.FrameCount {
		return fmt.Errorf("seek to frame %d outside [0, %d)", index, m.Meta.FrameCount)
	}
	m.Position = index
	return nil
}

// Release counts the call and returns any configured error.
func (m *MockFrameSource) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReleaseCount++
	return m.ReleaseError
}

// Released reports whether Release was called at least once.
func (m *MockFrameSource) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ReleaseCount > 0
}
