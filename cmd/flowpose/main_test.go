package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pflag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/flowpose/internal/flow"
	"github.com/banshee-data/flowpose/internal/fsutil"
	"github.com/banshee-data/flowpose/internal/monitoring"
	"github.com/banshee-data/flowpose/internal/sampler"
)

func init() {
	monitoring.SetLogger(nil)
}

// writeFrames writes n small PNG frames to a new directory.
func writeFrames(t *testing.T, n int) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "frames")
	require.NoError(t, os.MkdirAll(dir, 0755))
	for i := 0; i < n; i++ {
		img := image.NewGray(image.Rect(0, 0, 8, 6))
		for p := range img.Pix {
			img.Pix[p] = uint8(10*i + p)
		}
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	return dir
}

func testApp() *app {
	a := newApp()
	a.newProvider = func(flow.FarnebackParams) (flow.Provider, error) {
		return flow.ProviderFunc(func(prev, next image.Image) (flow.VectorField, error) {
			f := flow.UniformField(2, 2, r2.Vec{X: 1, Y: 2})
			f.Set(0, 0, r2.Vec{X: 3, Y: 2})
			return f, nil
		}), nil
	}
	a.newVideo = nil
	a.openVideo = func(path string) (sampler.FrameSource, error) {
		return nil, fmt.Errorf("%w: no video in tests", sampler.ErrResourceInit)
	}
	return a
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestOverridesFromFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("image_path", "", "")
	flags.Float64("step", 0, "")
	flags.Bool("flip", false, "")
	flags.Int("max-width", 0, "")
	require.NoError(t, flags.Parse([]string{"--image_path", "clip.mp4", "--step", "2", "--flip"}))

	o, err := overridesFromFlags(flags)
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", o.GetSourcePath())
	require.NotNil(t, o.StepSeconds)
	assert.Equal(t, 2.0, *o.StepSeconds)
	require.NotNil(t, o.Flip)
	assert.True(t, *o.Flip)
	assert.Nil(t, o.MaxWidth, "unset flags must not override the config file")
	assert.Nil(t, o.Mode, "undefined flags are ignored")
}

func TestLoadConfig_FileThenFlags(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"source_path": "a.mp4", "max_width": 320, "step_seconds": 1}`), 0644))

	a := testApp()
	_, err := execute(t, a, "version", "--config", cfgPath, "--log-level", "warn")
	require.NoError(t, err)
	assert.Equal(t, "a.mp4", a.cfg.GetSourcePath())
	assert.Equal(t, 320, a.cfg.Preprocess().MaxWidth)
	assert.Equal(t, "warn", a.cfg.GetLogLevel())

	_, err = execute(t, testApp(), "version", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestTimelapseCommand(t *testing.T) {
	frames := writeFrames(t, 10)
	outDir := t.TempDir()

	out, err := execute(t, testApp(), "timelapse", "--image_path", frames, "--fps", "10", "--step", "0.2", "--output-dir", outDir)
	require.NoError(t, err)

	stillDir := filepath.Join(outDir, "outputs", "8x6")
	assert.Contains(t, out, "4 stills in "+stillDir)
	entries, err := os.ReadDir(stillDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{
		"output_8x6_00_00_00_200.jpg",
		"output_8x6_00_00_00_400.jpg",
		"output_8x6_00_00_00_600.jpg",
		"output_8x6_00_00_00_800.jpg",
	}, names)
}

func TestTimelapseCommand_Errors(t *testing.T) {
	_, err := execute(t, testApp(), "timelapse")
	assert.ErrorContains(t, err, "--image_path is required")

	_, err = execute(t, testApp(), "timelapse", "--source", "missing.mp4")
	assert.ErrorIs(t, err, sampler.ErrResourceInit)
}

func TestTrackCommand_EndToEnd(t *testing.T) {
	frames := writeFrames(t, 6)
	tmp := t.TempDir()
	db := filepath.Join(tmp, "tracks.db")
	pngPath := filepath.Join(tmp, "track.png")
	htmlPath := filepath.Join(tmp, "track.html")

	out, err := execute(t, testApp(), "track", "--source", frames, "--fps", "10", "--db", db,
		"--notes", "bench", "--png", pngPath, "--html", htmlPath)
	require.NoError(t, err)
	assert.Contains(t, out, ": 4 steps, final position")
	trackID := strings.TrimSuffix(strings.Fields(out)[1], ":")
	assert.FileExists(t, pngPath)
	assert.FileExists(t, htmlPath)

	out, err = execute(t, testApp(), "tracks", "list", "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], trackID)
	assert.Contains(t, lines[1], "one-by-one")

	out, err = execute(t, testApp(), "tracks", "show", trackID, "--db", db)
	require.NoError(t, err)
	var doc struct {
		Track struct {
			TrackID string  `json:"track_id"`
			Source  string  `json:"source"`
			FPS     float64 `json:"fps"`
			Notes   string  `json:"notes"`
		} `json:"track"`
		Steps int `json:"steps"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, trackID, doc.Track.TrackID)
	assert.Equal(t, 10.0, doc.Track.FPS)
	assert.Equal(t, "bench", doc.Track.Notes)
	assert.Equal(t, 4, doc.Steps)

	reportDir := filepath.Join(tmp, "out")
	out, err = execute(t, testApp(), "tracks", "plot", trackID, "--db", db, "--output-dir", reportDir)
	require.NoError(t, err)
	paths := strings.Fields(out)
	require.Len(t, paths, 2)
	base := filepath.Join(reportDir, "reports", fsutil.SanitizeName(doc.Track.Source)+"_"+trackID[:8])
	assert.Equal(t, []string{base + ".png", base + ".html"}, paths)
	assert.FileExists(t, paths[0])
	assert.FileExists(t, paths[1])

	replot := filepath.Join(tmp, "replot.png")
	_, err = execute(t, testApp(), "tracks", "plot", trackID, "--db", db, "--png", replot)
	require.NoError(t, err)
	assert.FileExists(t, replot)

	_, err = execute(t, testApp(), "tracks", "delete", trackID, "--db", db)
	require.NoError(t, err)
	_, err = execute(t, testApp(), "tracks", "show", trackID, "--db", db)
	assert.Error(t, err)
}

func TestTracksMigrateCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "tracks.db")

	out, err := execute(t, testApp(), "tracks", "migrate", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "schema version 2 (dirty=false)\n", out)

	out, err = execute(t, testApp(), "tracks", "migrate", "--db", db, "--to", "1")
	require.NoError(t, err)
	assert.Equal(t, "schema version 1 (dirty=false)\n", out)

	_, err = execute(t, testApp(), "tracks", "migrate", "--db", db, "--to", "0")
	assert.ErrorContains(t, err, "--to must be at least 1")
}

func TestTrackCommand_NoInput(t *testing.T) {
	_, err := execute(t, testApp(), "track", "--db", filepath.Join(t.TempDir(), "t.db"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, testApp(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "flowpose dev"))
}
