package fit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
	"github.com/Raimguzhinov/curvequant/internal/curve"
	"github.com/Raimguzhinov/curvequant/internal/progress"
)

type entry struct {
	c colorspace.Color
	n int
}

type testHist []entry

func (h testHist) Len() int { return len(h) }

func (h testHist) At(i int) (colorspace.Color, int) { return h[i].c, h[i].n }

var redGreen = testHist{
	{colorspace.Color{R: 255}, 100},
	{colorspace.Color{G: 255}, 50},
}

func scenarioOptions(depth int) Options {
	o := DefaultOptions()
	o.NumPoints = 64
	o.SearchDepth = depth
	o.Seed = 20240601
	o.Seeded = true
	o.BatchSize = 4
	return o
}

func TestScenarioRedGreen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first, err := BestFit(ctx, redGreen, scenarioOptions(16))
	require.NoError(t, err)
	assert.Less(t, first.Error, float32(1.0))
	assert.Equal(t, 16, first.Candidates)
	assert.Equal(t, uint64(20240601), first.Seed)

	again, err := BestFit(ctx, redGreen, scenarioOptions(16))
	require.NoError(t, err)
	assert.Equal(t, first, again)

	deep, err := BestFit(ctx, redGreen, scenarioOptions(512))
	require.NoError(t, err)
	assert.Less(t, deep.Error, float32(0.5))
}

func TestDeeperSearchNeverWorse(t *testing.T) {
	t.Parallel()

	prev := math32.Inf(1)
	for _, depth := range []int{1, 4, 16, 64, 256} {
		res, err := BestFit(context.Background(), redGreen, scenarioOptions(depth))
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Error, prev, "depth %d", depth)
		prev = res.Error
	}
}

func TestResultMatchesEvaluate(t *testing.T) {
	t.Parallel()

	for _, m := range []curve.Metric{curve.MetricWeighted, curve.MetricSquared} {
		o := scenarioOptions(32)
		o.Metric = m
		res, err := BestFit(context.Background(), redGreen, o)
		require.NoError(t, err)
		assert.Equal(t, m, res.Metric)

		e, err := Evaluate(redGreen, res.Params, m)
		require.NoError(t, err)
		assert.Equal(t, res.Error, e)
	}
}

func TestUnseededRunRecordsSeed(t *testing.T) {
	t.Parallel()

	o := scenarioOptions(8)
	o.Seeded = false
	res, err := BestFit(context.Background(), redGreen, o)
	require.NoError(t, err)

	o.Seed, o.Seeded = res.Seed, true
	replay, err := BestFit(context.Background(), redGreen, o)
	require.NoError(t, err)
	assert.Equal(t, res, replay)
}

func TestEmptyHistogram(t *testing.T) {
	t.Parallel()

	_, err := BestFit(context.Background(), testHist{}, scenarioOptions(4))
	assert.ErrorIs(t, err, ErrEmptyHistogram)

	_, err = BestFit(context.Background(), testHist{{colorspace.Color{R: 1}, 0}}, scenarioOptions(4))
	assert.ErrorIs(t, err, ErrEmptyHistogram)
}

func TestInvalidNumPoints(t *testing.T) {
	t.Parallel()

	o := scenarioOptions(4)
	o.NumPoints = 0
	_, err := BestFit(context.Background(), redGreen, o)
	assert.ErrorIs(t, err, curve.ErrSamplingDensity)
}

func TestCheckBoundsRejectsWholeHistogram(t *testing.T) {
	t.Parallel()

	targets, _ := embedTargets(redGreen)
	require.NoError(t, checkBounds(targets, colorspace.Tolerance))

	targets = append(targets, target{
		color: colorspace.Color{B: 9},
		vec:   colorspace.Vector{X: 1.5, Z: 0.5},
	})
	err := checkBounds(targets, colorspace.Tolerance)
	require.Error(t, err)
	assert.ErrorIs(t, err, colorspace.ErrOutOfRange)

	var rangeErr *RangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, 2, rangeErr.Index)
	assert.Contains(t, err.Error(), "#000009")
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BestFit(ctx, redGreen, scenarioOptions(256))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCancelDuringSearch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var batches atomic.Int32
	ctx = progress.WithReporter(ctx, progress.ReporterFunc(func(_ string, done, _ int) {
		if done > 0 && batches.Add(1) == 2 {
			cancel()
		}
	}))

	o := scenarioOptions(4096)
	o.Workers = 1
	_, err := BestFit(ctx, redGreen, o)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProgressReachesTotal(t *testing.T) {
	t.Parallel()

	var last, total atomic.Int64
	ctx := progress.WithReporter(context.Background(), progress.ReporterFunc(func(stage string, done, all int) {
		if stage != StageFit {
			return
		}
		total.Store(int64(all))
		for {
			cur := last.Load()
			if int64(done) <= cur || last.CompareAndSwap(cur, int64(done)) {
				break
			}
		}
	}))

	_, err := BestFit(ctx, redGreen, scenarioOptions(50))
	require.NoError(t, err)
	assert.Equal(t, int64(50), total.Load())
	assert.Equal(t, int64(50), last.Load())
}

func TestGridStrategy(t *testing.T) {
	t.Parallel()

	o := scenarioOptions(1)
	o.Strategy = StrategyGrid
	o.GridSteps = 2
	res, err := BestFit(context.Background(), redGreen, o)
	require.NoError(t, err)
	assert.Equal(t, GridSize(2), res.Candidates)
	assert.Equal(t, 96, GridSize(2))
	assert.Equal(t, StrategyGrid, res.Strategy)
	assert.GreaterOrEqual(t, res.Params.ZMax, res.Params.ZMin)
}

func TestRandomCandidateRanges(t *testing.T) {
	t.Parallel()

	for _, r := range []Ranges{RangesWide, RangesNarrow} {
		o := scenarioOptions(0)
		o.Ranges = r
		b := r.bounds()
		for _, p := range randomCandidates(newRand(7), o, 2000) {
			assert.GreaterOrEqual(t, p.Amplitude, b.ampLo)
			assert.LessOrEqual(t, p.Amplitude, b.ampHi)
			assert.GreaterOrEqual(t, p.Oscillation, b.oscLo)
			assert.LessOrEqual(t, p.Oscillation, b.oscHi)
			assert.GreaterOrEqual(t, p.Harmonic, b.harmLo)
			assert.LessOrEqual(t, p.Harmonic, b.harmHi)
			assert.LessOrEqual(t, p.ZMin, p.ZMax)
			assert.LessOrEqual(t, p.AmplitudePhase, turn)
			assert.Equal(t, curve.Schema, p.Schema)
		}
	}
}

func TestCandidatePrefix(t *testing.T) {
	t.Parallel()

	o := scenarioOptions(0)
	short := randomCandidates(newRand(3), o, 10)
	long := randomCandidates(newRand(3), o, 100)
	assert.Equal(t, short, long[:10])
}

func TestReduce(t *testing.T) {
	t.Parallel()

	nan := math32.NaN()
	tests := []struct {
		name string
		errs []float32
		want int
	}{
		{"first minimum wins", []float32{0.5, 0.2, 0.2, 0.3}, 1},
		{"nan skipped", []float32{nan, 0.7, nan, 0.4}, 3},
		{"all nan", []float32{nan, nan}, -1},
		{"empty", nil, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := reduce(tt.errs)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNames(t *testing.T) {
	t.Parallel()

	s, err := ParseStrategy("GRID")
	require.NoError(t, err)
	assert.Equal(t, StrategyGrid, s)
	_, err = ParseStrategy("anneal")
	assert.ErrorIs(t, err, curve.ErrUnsupported)

	r, err := ParseRanges("narrow")
	require.NoError(t, err)
	assert.Equal(t, RangesNarrow, r)
	_, err = ParseRanges("huge")
	assert.ErrorIs(t, err, curve.ErrUnsupported)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	res, err := BestFit(context.Background(), redGreen, scenarioOptions(4))
	require.NoError(t, err)
	assert.Contains(t, res.Summary(), "random/weighted")
	assert.Contains(t, res.Summary(), "seed 20240601")
}
