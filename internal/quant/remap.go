package quant

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
	"github.com/Raimguzhinov/curvequant/internal/curve"
	"github.com/Raimguzhinov/curvequant/internal/progress"
)

// StageRemap: имя этапа перекраски в отчётах progress.Reporter.
const StageRemap = "remap"

// Remapper перекрашивает цвета в ближайшие точки одной кривой.
//
// Точки кривой снимаются один раз и округляются до 8-битных цветов.
// Поиск ведётся по векторам уже округлённых цветов, поэтому цвет палитры
// всегда переходит сам в себя и повторная перекраска ничего не меняет.
type Remapper struct {
	params  curve.Params
	palette []colorspace.Color
	vectors []colorspace.Vector
	index   map[colorspace.Color]int
}

// NewRemapper строит палитру кривой p.
func NewRemapper(p curve.Params) (*Remapper, error) {
	points, err := p.Points()
	if err != nil {
		return nil, err
	}

	r := &Remapper{params: p, index: make(map[colorspace.Color]int, len(points))}
	for _, pt := range points {
		c, err := colorspace.ColorOf(pt)
		if err != nil {
			return nil, fmt.Errorf("точка кривой %v: %w", pt, err)
		}
		if _, ok := r.index[c]; ok {
			continue
		}
		r.index[c] = len(r.palette)
		r.palette = append(r.palette, c)
		r.vectors = append(r.vectors, colorspace.EmbedColor(c))
	}
	return r, nil
}

// Params возвращает параметры кривой.
func (r *Remapper) Params() curve.Params { return r.params }

// Palette возвращает различные цвета кривой в порядке обхода t.
func (r *Remapper) Palette() []colorspace.Color {
	out := make([]colorspace.Color, len(r.palette))
	copy(out, r.palette)
	return out
}

// RemapColor возвращает цвет палитры, ближайший к c по Error.
func (r *Remapper) RemapColor(c colorspace.Color) colorspace.Color {
	if _, ok := r.index[c]; ok {
		return c
	}
	i, _ := curve.ClosestIndex(r.vectors, colorspace.EmbedColor(c), curve.MetricWeighted)
	return r.palette[i]
}

// Remap перекрашивает произвольный цвет, альфа всегда 255.
func (r *Remapper) Remap(c color.Color) color.NRGBA {
	return r.RemapColor(colorspace.FromColor(c)).NRGBA()
}

// Image перекрашивает все пиксели img в новое изображение тех же границ.
// Полосы строк обрабатываются параллельно, отмена ctx проверяется
// перед каждой полосой.
func (r *Remapper) Image(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	bands := splitRange(b.Dy(), 4*runtime.GOMAXPROCS(0))
	counter := progress.Start(ctx, StageRemap, b.Dy())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, band := range bands {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cache := make(map[colorspace.Color]color.NRGBA)
			for y := b.Min.Y + band[0]; y < b.Min.Y+band[1]; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					c := colorspace.FromColor(img.At(x, y))
					px, ok := cache[c]
					if !ok {
						px = r.RemapColor(c).NRGBA()
						cache[c] = px
					}
					out.SetNRGBA(x, y, px)
				}
			}
			counter.Add(band[1] - band[0])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
