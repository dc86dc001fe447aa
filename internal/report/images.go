package report

import (
	"context"
	"image"
	"image/color"

	"github.com/chewxy/math32"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
	"github.com/Raimguzhinov/curvequant/internal/quant"
)

// Strip рисует палитру полосой: по cell пикселей ширины на цвет, высотой h.
func Strip(palette []colorspace.Color, cell, h int) *image.NRGBA {
	cell, h = max(cell, 1), max(h, 1)
	img := image.NewNRGBA(image.Rect(0, 0, len(palette)*cell, h))
	for i, c := range palette {
		px := c.NRGBA()
		for y := 0; y < h; y++ {
			for x := i * cell; x < (i+1)*cell; x++ {
				img.SetNRGBA(x, y, px)
			}
		}
	}
	return img
}

// Wheel рисует цветовой круг size×size: оттенок по углу, светлота по
// радиусу, насыщенность 1. Углы за пределами круга белые.
func Wheel(size int) *image.NRGBA {
	size = max(size, 1)
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	half := float32(size) / 2
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := (float32(x) + 0.5 - half) / half
			dy := (half - float32(y) - 0.5) / half
			r := math32.Hypot(dx, dy)
			if r > 1 {
				img.SetNRGBA(x, y, white)
				continue
			}
			hue, sat, lum := colorspace.Unembed(colorspace.Vector{X: dx, Y: dy, Z: 1})
			c, err := colorspace.HSLToRGB(hue, sat, lum)
			if err != nil {
				c = colorspace.Color{}
			}
			img.SetNRGBA(x, y, c.NRGBA())
		}
	}
	return img
}

// PaletteWheel перекрашивает цветовой круг в палитру кривой.
func PaletteWheel(ctx context.Context, rm *quant.Remapper, size int) (*image.NRGBA, error) {
	return rm.Image(ctx, Wheel(size))
}
