// Package colorspace переводит 8-битные цвета в HSL и в трёхмерное
// представление "диск с осью": оттенок задаёт угол, светлота задаёт радиус,
// насыщенность задаёт высоту. В этом пространстве строится кривая палитры.
package colorspace

import (
	"errors"
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Tolerance: насколько компоненты HSL могут выйти за [0,1] из-за
// погрешности округления, прежде чем это станет ошибкой.
const Tolerance = 0.02

// ErrOutOfRange возвращается, когда значение лежит вне допустимого диапазона.
var ErrOutOfRange = errors.New("значение вне допустимого диапазона")

// Color: цвет пикселя без альфа-канала.
type Color struct {
	R, G, B uint8
}

// FromColor приводит произвольный color.Color к Color, отбрасывая альфу.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{R: n.R, G: n.G, B: n.B}
}

// NRGBA возвращает цвет с полной непрозрачностью.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// Packed упаковывает каналы в 0xRRGGBB.
func (c Color) Packed() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// RGBToHSL возвращает оттенок, насыщенность и светлоту, каждую в [0,1].
// Оттенок лежит в [0,1).
func RGBToHSL(c Color) (hue, sat, lum float32) {
	h, s, l := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hsl()

	hue = float32(h / 360)
	if hue >= 1 {
		hue -= 1
	}
	return hue, float32(s), float32(l)
}

// HSLToRGB: обратное преобразование. Значения в пределах Tolerance за
// границами [0,1] прижимаются, остальные дают ErrOutOfRange.
func HSLToRGB(hue, sat, lum float32) (Color, error) {
	if !inUnit(hue) || !inUnit(sat) || !inUnit(lum) {
		return Color{}, fmt.Errorf("hsl(%.4f, %.4f, %.4f): %w", hue, sat, lum, ErrOutOfRange)
	}

	c := colorful.Hsl(
		float64(Clamp(hue, 0, 1))*360,
		float64(Clamp(sat, 0, 1)),
		float64(Clamp(lum, 0, 1)),
	)
	r, g, b := c.Clamped().RGB255()
	return Color{R: r, G: g, B: b}, nil
}

func inUnit(v float32) bool {
	return v >= -Tolerance && v <= 1+Tolerance
}

// Clamp прижимает v к отрезку [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
