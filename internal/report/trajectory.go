// Package report renders integrated trajectories as static PNG plots and
// interactive HTML charts.
package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/flowpose/internal/fsutil"
	"github.com/banshee-data/flowpose/internal/odometry"
)

// ErrEmptyTrajectory is returned when there are no steps to render.
var ErrEmptyTrajectory = errors.New("trajectory has no steps")

// Point is one position along a trajectory. The origin is Seq -1.
type Point struct {
	Seq        int
	FrameIndex int
	Timestamp  time.Duration
	Position   r2.Vec
}

// Trajectory is an ordered path starting at the origin.
type Trajectory struct {
	Title  string
	Points []Point
}

// NewTrajectory builds a trajectory from recorded steps, prefixed with the
// origin the accumulator starts from.
func NewTrajectory(title string, steps []odometry.StepRecord) Trajectory {
	pts := make([]Point, 0, len(steps)+1)
	pts = append(pts, Point{Seq: -1})
	for _, s := range steps {
		pts = append(pts, Point{
			Seq:        s.Seq,
			FrameIndex: s.FrameIndex,
			Timestamp:  s.Timestamp,
			Position:   s.Position,
		})
	}
	return Trajectory{Title: title, Points: pts}
}

// Steps is the number of integrated steps, excluding the origin.
func (t Trajectory) Steps() int {
	if len(t.Points) == 0 {
		return 0
	}
	return len(t.Points) - 1
}

// Final returns the last position, or the origin for an empty trajectory.
func (t Trajectory) Final() r2.Vec {
	if len(t.Points) == 0 {
		return r2.Vec{}
	}
	return t.Points[len(t.Points)-1].Position
}

// Extent returns the largest absolute coordinate, at least 1.
func (t Trajectory) Extent() float64 {
	ext := 1.0
	for _, p := range t.Points {
		ext = math.Max(ext, math.Max(math.Abs(p.Position.X), math.Abs(p.Position.Y)))
	}
	return ext
}

// PathLength sums the distances between consecutive points.
func (t Trajectory) PathLength() float64 {
	var total float64
	for i := 1; i < len(t.Points); i++ {
		total += r2.Norm(r2.Sub(t.Points[i].Position, t.Points[i-1].Position))
	}
	return total
}

func (t Trajectory) subtitle() string {
	f := t.Final()
	return fmt.Sprintf("steps=%d final=(%.2f, %.2f) path=%.2f", t.Steps(), f.X, f.Y, t.PathLength())
}

func writeFile(fs fsutil.FileSystem, path string, render func(io.Writer) error) error {
	w, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(w); err != nil {
		w.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
