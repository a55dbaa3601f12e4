package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/flowpose/internal/fsutil"
)

// AssetsHost serves the echarts scripts referenced by rendered pages.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// WriteTrajectoryHTML renders t as an interactive scatter coloured by step
// and writes it to path.
func WriteTrajectoryHTML(fs fsutil.FileSystem, path string, t Trajectory) error {
	scatter, err := trajectoryChart(t)
	if err != nil {
		return err
	}
	return writeFile(fs, path, func(w io.Writer) error {
		return scatter.Render(w)
	})
}

func trajectoryChart(t Trajectory) (*charts.Scatter, error) {
	if t.Steps() == 0 {
		return nil, ErrEmptyTrajectory
	}

	data := make([]opts.ScatterData, 0, len(t.Points))
	for _, pt := range t.Points {
		data = append(data, opts.ScatterData{
			Name:  fmt.Sprintf("frame %d @ %s", pt.FrameIndex, pt.Timestamp),
			Value: []interface{}{pt.Position.X, pt.Position.Y, pt.Seq + 1},
		})
	}

	pad := t.Extent() * 1.1
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: t.Title, Theme: "dark", Width: "900px", Height: "900px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: t.Title, Subtitle: t.subtitle()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (px)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(t.Steps()),
			Dimension:  "2",
			Text:       []string{"last", "origin"},
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("position", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	return scatter, nil
}
