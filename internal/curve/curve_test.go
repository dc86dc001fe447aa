package curve

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
)

func testParams(n int, jitter JitterMode) Params {
	return Params{
		Schema:           Schema,
		Amplitude:        0.8,
		AmplitudePhase:   0.4,
		Oscillation:      0.6,
		OscillationPhase: 1.9,
		Harmonic:         2.5,
		ZMin:             0.1,
		ZMax:             0.9,
		NumPoints:        n,
		Jitter:           jitter,
		Seed:             42,
	}
}

func TestPointsCountAndPositions(t *testing.T) {
	t.Parallel()

	p := testParams(5, JitterOff)
	points, err := p.Points()
	require.NoError(t, err)
	require.Len(t, points, 5)

	assert.Equal(t, float32(0), p.Position(0))
	assert.Equal(t, float32(0.5), p.Position(2))
	assert.Equal(t, float32(1), p.Position(4))
	assert.InDelta(t, 0.1, points[0].Z, 1e-6)
	assert.InDelta(t, 0.9, points[4].Z, 1e-6)
}

func TestSinglePointEvaluatesStart(t *testing.T) {
	t.Parallel()

	for _, mode := range []JitterMode{JitterSeeded, JitterOff} {
		p := testParams(1, mode)
		points, err := p.Points()
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, p.Sample(0), points[0])

		got, err := p.ClosestPoint(colorspace.Vector{X: -0.9, Y: 0.9, Z: 1})
		require.NoError(t, err)
		assert.Equal(t, p.Sample(0), got)

		tp, err := p.ClosestParameter(colorspace.Vector{X: 0.3, Y: 0.1, Z: 0.5})
		require.NoError(t, err)
		assert.Equal(t, float32(0), tp)
	}
}

func TestInvalidSamplingDensity(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -3} {
		p := testParams(n, JitterOff)
		_, err := p.Points()
		assert.ErrorIs(t, err, ErrSamplingDensity)
		_, err = p.ClosestPoint(colorspace.Vector{})
		assert.ErrorIs(t, err, ErrSamplingDensity)
		_, err = p.ClosestParameter(colorspace.Vector{})
		assert.ErrorIs(t, err, ErrSamplingDensity)
	}
}

func TestValidateRejectsUnknownSchema(t *testing.T) {
	t.Parallel()

	p := testParams(8, JitterOff)
	p.Schema = Schema + 1
	assert.ErrorIs(t, p.Validate(), ErrUnsupported)

	p = testParams(8, JitterOff)
	p.Embedding = Embedding(3)
	assert.ErrorIs(t, p.Validate(), ErrUnsupported)
}

func TestSamplesStayInsideEmbedding(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		p := Params{
			Amplitude:        rng.Float32(),
			AmplitudePhase:   rng.Float32() * 6.28,
			Oscillation:      -1 + 3*rng.Float32(),
			OscillationPhase: rng.Float32() * 6.28,
			Harmonic:         1 + 7*rng.Float32(),
			ZMin:             -1 + 3*rng.Float32(),
			ZMax:             -1 + 3*rng.Float32(),
			NumPoints:        64,
			Jitter:           JitterMode(i % 3),
			Seed:             rng.Uint64(),
		}
		points, err := p.Points()
		require.NoError(t, err)
		for _, pt := range points {
			require.True(t, colorspace.InBounds(pt, 0), "point %v of %v", pt, p)
		}
	}
}

func TestSeededJitterIsReproducible(t *testing.T) {
	t.Parallel()

	p := testParams(128, JitterSeeded)
	first, err := p.Points()
	require.NoError(t, err)
	second, err := p.Points()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	p.Seed++
	other, err := p.Points()
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestJitterRange(t *testing.T) {
	t.Parallel()

	for _, mode := range []JitterMode{JitterSeeded, JitterFresh} {
		p := testParams(0, mode)
		for i := 0; i < 1000; i++ {
			p.Seed = uint64(i) * 7919
			j := p.jitter(float32(i) / 1000)
			assert.GreaterOrEqual(t, j, float32(JitterMin))
			assert.Less(t, j, float32(JitterMax))
		}
	}
	assert.Equal(t, float32(1), testParams(0, JitterOff).jitter(0.3))
}

func TestErrorOfPointWithItselfIsZero(t *testing.T) {
	t.Parallel()

	points, err := testParams(256, JitterOff).Points()
	require.NoError(t, err)
	for _, pt := range points {
		assert.Zero(t, Error(pt, pt), "point %v", pt)
	}
	assert.Zero(t, Error(colorspace.Vector{}, colorspace.Vector{}))
}

func TestErrorTerms(t *testing.T) {
	t.Parallel()

	red := colorspace.Vector{X: 0.5, Y: 0, Z: 1}
	cyan := colorspace.Vector{X: -0.5, Y: 0, Z: 1}
	green := colorspace.Vector{X: -0.25, Y: 0.4330127, Z: 1}

	assert.InDelta(t, 1, HueError(red, cyan), 1e-6)
	assert.InDelta(t, 2.0/3, HueError(red, green), 1e-5)
	assert.InDelta(t, HueError(red, green), HueError(green, red), 1e-7)

	// оттенок 0.99 и 0.01 близки, несмотря на переход через 0
	a := colorspace.Embed(0.99, 1, 0.5)
	b := colorspace.Embed(0.01, 1, 0.5)
	assert.InDelta(t, 0.04, Error(a, b), 1e-4)

	dark := colorspace.Vector{Z: 0.2}
	assert.Zero(t, HueError(dark, red))
	assert.InDelta(t, WeightLum*0.5+WeightSat*0.8, Error(dark, red), 1e-6)
}

func TestMetricDistance(t *testing.T) {
	t.Parallel()

	a := colorspace.Vector{X: 0.1, Y: 0.2, Z: 0.3}
	b := colorspace.Vector{X: 0.4, Y: -0.2, Z: 0.3}
	assert.InDelta(t, 0.25, MetricSquared.Distance(a, b), 1e-6)
	assert.Equal(t, SquaredDistance(a, b), SquaredDistance(b, a))
	assert.Equal(t, Error(a, b), MetricWeighted.Distance(a, b))

	m, err := ParseMetric(" Squared ")
	require.NoError(t, err)
	assert.Equal(t, MetricSquared, m)
	_, err = ParseMetric("manhattan")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestClosestIndexTieBreak(t *testing.T) {
	t.Parallel()

	q := colorspace.Vector{X: 0.5, Z: 0.5}
	points := []colorspace.Vector{
		{X: 0, Y: 0.5, Z: 0.5},
		{X: 0.5, Z: 0.5},
		{X: 0.5, Z: 0.5},
	}
	i, d := ClosestIndex(points, q, MetricWeighted)
	assert.Equal(t, 1, i)
	assert.Zero(t, d)

	i, _ = ClosestIndex(nil, q, MetricWeighted)
	assert.Equal(t, -1, i)
}

func TestClosestPointIsMemberOfPoints(t *testing.T) {
	t.Parallel()

	p := testParams(97, JitterSeeded)
	points, err := p.Points()
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 50; i++ {
		q := colorspace.Embed(rng.Float32(), rng.Float32(), rng.Float32())
		got, err := p.ClosestPoint(q)
		require.NoError(t, err)
		assert.Contains(t, points, got)

		tp, err := p.ClosestParameter(q)
		require.NoError(t, err)
		idx, _ := ClosestIndex(points, q, MetricWeighted)
		assert.Equal(t, p.Position(idx), tp)
	}
}

func TestParseJitterMode(t *testing.T) {
	t.Parallel()

	for _, mode := range []JitterMode{JitterSeeded, JitterFresh, JitterOff} {
		got, err := ParseJitterMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}
	_, err := ParseJitterMode("sometimes")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	p := testParams(255, JitterSeeded)
	assert.Contains(t, p.String(), "n=255")
	assert.Contains(t, p.Describe(), "Гармоника")
	assert.Contains(t, p.Describe(), "seed 42")
}
