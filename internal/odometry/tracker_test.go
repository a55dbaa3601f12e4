package odometry

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/flowpose/internal/capture"
	"github.com/banshee-data/flowpose/internal/flow"
	"github.com/banshee-data/flowpose/internal/monitoring"
	"github.com/banshee-data/flowpose/internal/pose"
	"github.com/banshee-data/flowpose/internal/sampler"
)

func init() {
	monitoring.SetLogger(nil)
}

// lineField places four vectors along direction theta around centre.
func lineField(theta float64, centre r2.Vec) flow.VectorField {
	d := r2.Vec{X: math.Cos(theta), Y: math.Sin(theta)}
	f := flow.NewVectorField(2, 2)
	f.Set(0, 0, r2.Add(centre, d))
	f.Set(0, 1, r2.Sub(centre, d))
	f.Set(1, 0, r2.Add(centre, r2.Scale(2, d)))
	f.Set(1, 1, r2.Sub(centre, r2.Scale(2, d)))
	return f
}

var stepField = lineField(0.3, r2.Vec{X: 2, Y: -1})

func constantProvider(field flow.VectorField) flow.Provider {
	return flow.ProviderFunc(func(prev, next image.Image) (flow.VectorField, error) {
		return field, nil
	})
}

func newInput(t *testing.T, src *sampler.MockFrameSource) capture.Input {
	t.Helper()
	s, err := sampler.New(src, sampler.OptionsFor(nil))
	require.NoError(t, err)
	in, err := capture.NewSampled("mock", s, capture.Preprocess{})
	require.NoError(t, err)
	return in
}

type memRecorder struct {
	records []StepRecord
	err     error
}

func (m *memRecorder) RecordStep(ctx context.Context, rec StepRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func TestTracker_RunIntegratesEverySubsequentFrame(t *testing.T) {
	src := sampler.NewMockFrameSource(10, 5)
	rec := &memRecorder{}
	tr := NewTracker(newInput(t, src), constantProvider(stepField), rec, DefaultOptions())

	stats, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Captures: 4, Recorded: 3}, stats)
	assert.Equal(t, 1, src.ReleaseCount)

	est, err := flow.Estimate(stepField)
	require.NoError(t, err)
	want := pose.NewAccumulator()
	for i := 0; i < 3; i++ {
		want.Integrate(est)
	}

	require.Len(t, rec.records, 3)
	for i, r := range rec.records {
		assert.Equal(t, i, r.Seq)
		assert.Equal(t, i+2, r.FrameIndex)
		assert.Equal(t, est, r.Estimate)
	}
	assert.InDelta(t, want.Position().X, tr.Position().X, 1e-12)
	assert.InDelta(t, want.Position().Y, tr.Position().Y, 1e-12)
	assert.Equal(t, rec.records[2].Position, tr.Position())
	assert.Equal(t, 3, tr.Accumulator().Steps())
}

func TestTracker_SkipsReadFailures(t *testing.T) {
	src := sampler.NewMockFrameSource(10, 5)
	src.FailReads[2] = true
	var pairs [][2]uint8
	provider := flow.ProviderFunc(func(prev, next image.Image) (flow.VectorField, error) {
		pairs = append(pairs, [2]uint8{prev.(*image.Gray).Pix[0], next.(*image.Gray).Pix[0]})
		return stepField, nil
	})
	tr := NewTracker(newInput(t, src), provider, nil, DefaultOptions())

	stats, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Captures: 4, Recorded: 2, SkippedReads: 1}, stats)
	assert.Equal(t, [][2]uint8{{0, 1}, {1, 3}}, pairs, "flow must bridge the unreadable frame")
}

func TestTracker_AbortsOnReadFailure(t *testing.T) {
	src := sampler.NewMockFrameSource(10, 5)
	src.FailReads[0] = true
	tr := NewTracker(newInput(t, src), constantProvider(stepField), nil, Options{})

	_, err := tr.Run(context.Background())
	assert.ErrorIs(t, err, ErrReadFailure)
}

func TestTracker_DegeneratePolicy(t *testing.T) {
	bad := flow.NewVectorField(2, 2)
	bad.Set(0, 0, r2.Vec{X: math.Inf(1)})

	t.Run("abort", func(t *testing.T) {
		tr := NewTracker(newInput(t, sampler.NewMockFrameSource(10, 4)), constantProvider(bad), nil, DefaultOptions())
		stats, err := tr.Run(context.Background())
		assert.ErrorIs(t, err, flow.ErrNumericDegeneracy)
		assert.Equal(t, 0, stats.Recorded)
	})

	t.Run("skip", func(t *testing.T) {
		opts := DefaultOptions()
		opts.SkipDegenerate = true
		tr := NewTracker(newInput(t, sampler.NewMockFrameSource(10, 4)), constantProvider(bad), nil, opts)
		stats, err := tr.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Stats{Captures: 3, SkippedDegenerate: 2}, stats)
		assert.Equal(t, r2.Vec{}, tr.Position(), "skipped steps must not move the pose")
	})
}

func TestTracker_StepOutcomes(t *testing.T) {
	src := sampler.NewMockFrameSource(10, 4)
	src.FailReads[1] = true
	tr := NewTracker(newInput(t, src), constantProvider(stepField), nil, DefaultOptions())
	ctx := context.Background()

	var got []Outcome
	for {
		res, err := tr.Step(ctx)
		if errors.Is(err, sampler.ErrExhausted) {
			break
		}
		require.NoError(t, err)
		got = append(got, res.Outcome)
	}
	assert.Equal(t, []Outcome{OutcomePrimed, OutcomeSkippedRead, OutcomeRecorded}, got)
	assert.Equal(t, "skipped-read", OutcomeSkippedRead.String())
}

func TestTracker_FlowErrorPropagates(t *testing.T) {
	boom := errors.New("flow backend crashed")
	provider := flow.ProviderFunc(func(prev, next image.Image) (flow.VectorField, error) {
		return flow.VectorField{}, boom
	})
	tr := NewTracker(newInput(t, sampler.NewMockFrameSource(10, 5)), provider, nil, DefaultOptions())

	_, err := tr.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestTracker_RecorderError(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	tr := NewTracker(newInput(t, sampler.NewMockFrameSource(10, 5)), constantProvider(stepField), rec, DefaultOptions())

	_, err := tr.Run(context.Background())
	assert.ErrorIs(t, err, rec.err)
}

func TestTracker_RunHonoursContextAndMaxSteps(t *testing.T) {
	src := sampler.NewMockFrameSource(10, 50)
	tr := NewTracker(newInput(t, src), constantProvider(stepField), nil, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := tr.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.Captures)

	opts := DefaultOptions()
	opts.MaxSteps = 5
	tr = NewTracker(newInput(t, sampler.NewMockFrameSource(10, 50)), constantProvider(stepField), nil, opts)
	stats, err = tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Recorded)
	assert.Equal(t, 6, stats.Captures)
}

func TestTracker_ResetStartsNewTrack(t *testing.T) {
	tr := NewTracker(newInput(t, sampler.NewMockFrameSource(10, 20)), constantProvider(stepField), nil, DefaultOptions())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := tr.Step(ctx)
		require.NoError(t, err)
	}
	require.NotEqual(t, r2.Vec{}, tr.Position())

	tr.Reset()
	assert.Equal(t, r2.Vec{}, tr.Position())
	assert.Equal(t, 0, tr.Accumulator().Steps())

	res, err := tr.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomePrimed, res.Outcome)

	res, err = tr.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Record.Seq, "sequence continues after reset")
	assert.Equal(t, 1, tr.Accumulator().Steps())
}

func TestTracker_CloseReleasesInput(t *testing.T) {
	src := sampler.NewMockFrameSource(10, 20)
	tr := NewTracker(newInput(t, src), constantProvider(stepField), nil, DefaultOptions())

	_, err := tr.Step(context.Background())
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.Equal(t, 1, src.ReleaseCount)
}
