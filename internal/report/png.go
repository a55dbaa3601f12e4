package report

import (
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/flowpose/internal/fsutil"
)

// PNG plot size.
const (
	PlotWidth  = 8 * vg.Inch
	PlotHeight = 8 * vg.Inch
)

var (
	pathColor  = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	startColor = color.RGBA{R: 53, G: 183, B: 121, A: 255}
	endColor   = color.RGBA{R: 220, G: 50, B: 47, A: 255}
)

// WriteTrajectoryPNG plots t as a connected path with its start and end
// marked and writes it to path as a PNG.
func WriteTrajectoryPNG(fs fsutil.FileSystem, path string, t Trajectory) error {
	p, err := trajectoryPlot(t)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PlotWidth, PlotHeight, "png")
	if err != nil {
		return err
	}
	return writeFile(fs, path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}

func trajectoryPlot(t Trajectory) (*plot.Plot, error) {
	if t.Steps() == 0 {
		return nil, ErrEmptyTrajectory
	}

	pts := make(plotter.XYs, len(t.Points))
	for i, pt := range t.Points {
		pts[i] = plotter.XY{X: pt.Position.X, Y: pt.Position.Y}
	}

	p := plot.New()
	p.Title.Text = t.Title + "\n" + t.subtitle()
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"
	pad := t.Extent() * 1.1
	p.X.Min, p.X.Max = -pad, pad
	p.Y.Min, p.Y.Max = -pad, pad
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = pathColor
	line.Width = vg.Points(1)
	p.Add(line)

	start, err := plotter.NewScatter(pts[:1])
	if err != nil {
		return nil, err
	}
	start.GlyphStyle.Color = startColor
	start.GlyphStyle.Shape = draw.CircleGlyph{}
	start.GlyphStyle.Radius = vg.Points(4)

	end, err := plotter.NewScatter(pts[len(pts)-1:])
	if err != nil {
		return nil, err
	}
	end.GlyphStyle.Color = endColor
	end.GlyphStyle.Shape = draw.CrossGlyph{}
	end.GlyphStyle.Radius = vg.Points(5)

	p.Add(start, end)
	p.Legend.Add("path", line)
	p.Legend.Add("start", start)
	p.Legend.Add("end", end)
	p.Legend.Top = true
	return p, nil
}
