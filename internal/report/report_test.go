package report

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
	"github.com/Raimguzhinov/curvequant/internal/curve"
	"github.com/Raimguzhinov/curvequant/internal/fit"
	"github.com/Raimguzhinov/curvequant/internal/quant"
)

var sampleHist = quant.Histogram{
	{Color: colorspace.Color{R: 255}, Count: 12000},
	{Color: colorspace.Color{G: 255}, Count: 3000},
	{Color: colorspace.Color{B: 255}, Count: 1},
}

func TestBar(t *testing.T) {
	t.Parallel()

	assert.Equal(t, BarWidth, Bar(100, 100))
	assert.Equal(t, 20, Bar(50, 100))
	assert.Equal(t, 1, Bar(1, 1000000))
	assert.Equal(t, 0, Bar(0, 100))
	assert.Equal(t, 0, Bar(5, 0))
}

func TestWriteHistogram(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteHistogram(&buf, sampleHist, 2, termenv.Ascii))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, "255,  0,  0    | 12,000 | "+strings.Repeat("█", 40), lines[0])
	assert.Equal(t, "  0,255,  0    |  3,000 | "+strings.Repeat("█", 10), lines[1])
	assert.Contains(t, lines[2], "ещё 1 цветов")
}

func TestWriteHistogramEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteHistogram(&buf, nil, 0, termenv.Ascii))
	assert.Equal(t, "(пусто)\n", buf.String())
}

func TestSwatchTrueColor(t *testing.T) {
	t.Parallel()

	s := Swatch(termenv.TrueColor, colorspace.Color{R: 255, G: 128})
	assert.Contains(t, s, "48;2;255;128;0")
	assert.Equal(t, "  ", Swatch(termenv.Ascii, colorspace.Color{R: 1}))
}

func TestProgressBar(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewProgressBar(&buf, termenv.Ascii)
	p.Report("fit", 0, 200)
	p.Report("fit", 1, 200)
	p.Report("fit", 100, 200)
	p.Report("fit", 90, 200)
	p.Report("remap", 10, 10)
	p.Finish()

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\rfit"))
	assert.Contains(t, out, " 50% (100/200)")
	assert.Contains(t, out, "\rremap")
	assert.Contains(t, out, "100% (10/10)")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestStrip(t *testing.T) {
	t.Parallel()

	palette := []colorspace.Color{{R: 255}, {G: 255}, {B: 255}}
	img := Strip(palette, 4, 3)
	assert.Equal(t, image.Rect(0, 0, 12, 3), img.Bounds())
	assert.Equal(t, palette[1].NRGBA(), img.NRGBAAt(5, 2))
	assert.Equal(t, palette[2].NRGBA(), img.NRGBAAt(11, 0))
}

func TestWheel(t *testing.T) {
	t.Parallel()

	img := Wheel(64)
	assert.Equal(t, colorspace.Color{R: 255, G: 255, B: 255}.NRGBA(), img.NRGBAAt(0, 0))

	// справа от центра оттенок 0, то есть красный
	c := colorspace.FromColor(img.At(60, 32))
	assert.Greater(t, c.R, c.G)
	assert.Greater(t, c.R, c.B)

	// у центра светлота почти нулевая
	center := colorspace.FromColor(img.At(32, 32))
	assert.Less(t, int(center.R)+int(center.G)+int(center.B), 30)
}

func TestPaletteWheelUsesPalette(t *testing.T) {
	t.Parallel()

	rm, err := quant.NewRemapper(curve.Params{
		Schema: curve.Schema, Amplitude: 0.9, Oscillation: 0.5, Harmonic: 2,
		ZMin: 0.5, ZMax: 1, NumPoints: 16, Jitter: curve.JitterOff,
	})
	require.NoError(t, err)

	img, err := PaletteWheel(context.Background(), rm, 24)
	require.NoError(t, err)
	hist := quant.BuildHistogram(img)
	palette := rm.Palette()
	for _, e := range hist {
		assert.Contains(t, palette, e.Color)
	}
}

func TestWriteMarkdown(t *testing.T) {
	t.Parallel()

	rm, err := quant.NewRemapper(curve.Params{Schema: curve.Schema, Amplitude: 1, Harmonic: 1, ZMax: 1, NumPoints: 4})
	require.NoError(t, err)

	entries := []Entry{{
		Input:  "in/flower.png",
		Output: "out/flower.png",
		Outcome: quant.Outcome{
			Image:     image.NewNRGBA(image.Rect(0, 0, 120, 80)),
			Histogram: sampleHist,
			Result:    fit.Result{Params: rm.Params(), Error: 0.25, Candidates: 8192, Seed: 3},
			Remapper:  rm,
			Cached:    true,
		},
		Elapsed: 1500 * time.Millisecond,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, entries))
	md := buf.String()
	assert.Contains(t, md, "## in/flower.png")
	assert.Contains(t, md, "120×80")
	assert.Contains(t, md, "15,001")
	assert.Contains(t, md, "8,192")
	assert.Contains(t, md, "| `#FF0000` | 12,000 | 79.99% |")
	assert.Contains(t, md, "из журнала")
	assert.Contains(t, md, "Гармоника")
	assert.Contains(t, md, "Палитра кривой")
	assert.NotContains(t, md, "# Отчёт")
}

func TestAppendMarkdownWritesTitleOnce(t *testing.T) {
	t.Parallel()

	rm, err := quant.NewRemapper(curve.Params{Schema: curve.Schema, Amplitude: 1, Harmonic: 1, ZMax: 1, NumPoints: 4})
	require.NoError(t, err)
	entry := func(name string) []Entry {
		return []Entry{{
			Input: name,
			Outcome: quant.Outcome{
				Histogram: sampleHist,
				Result:    fit.Result{Params: rm.Params()},
				Remapper:  rm,
			},
		}}
	}

	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, AppendMarkdown(path, entry("a.png")))
	require.NoError(t, AppendMarkdown(path, entry("b.png")))
	require.NoError(t, AppendMarkdown(path, entry("c.png")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(data)
	assert.True(t, strings.HasPrefix(md, "# Отчёт curvequant\n"))
	assert.Equal(t, 1, strings.Count(md, "# Отчёт"))
	assert.Equal(t, 3, strings.Count(md, "\n## "))
	assert.Less(t, strings.Index(md, "## a.png"), strings.Index(md, "## c.png"))
}
