package colorspace

import (
	"fmt"

	"github.com/chewxy/math32"
)

const turn = 2 * math32.Pi

// Vector: точка во встраивании "диск с осью".
// X и Y лежат в [-1,1], Z в [0,1].
type Vector struct {
	X, Y, Z float32
}

// Planar возвращает длину проекции на плоскость XY, то есть светлоту.
func (v Vector) Planar() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y)
}

// DistanceSquared: квадрат евклидова расстояния.
func (v Vector) DistanceSquared(o Vector) float32 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

func (v Vector) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v.X, v.Y, v.Z)
}

// Embed переводит HSL в вектор: угол = оттенок, радиус = светлота,
// высота = насыщенность. Близкие по оттенку цвета группируются по углу,
// тёмные: возле оси.
func Embed(hue, sat, lum float32) Vector {
	angle := hue * turn
	return Vector{
		X: lum * math32.Cos(angle),
		Y: lum * math32.Sin(angle),
		Z: sat,
	}
}

// Unembed: обратное к Embed. Радиус и высота прижимаются к [0,1],
// оттенок нормируется в [0,1).
func Unembed(v Vector) (hue, sat, lum float32) {
	hue = math32.Atan2(v.Y, v.X) / turn
	if hue < 0 {
		hue += 1
	}
	if hue >= 1 {
		hue -= 1
	}
	return hue, Clamp(v.Z, 0, 1), Clamp(v.Planar(), 0, 1)
}

// EmbedColor переводит цвет сразу во встраивание.
func EmbedColor(c Color) Vector {
	return Embed(RGBToHSL(c))
}

// ColorOf возвращает 8-битный цвет точки встраивания.
func ColorOf(v Vector) (Color, error) {
	return HSLToRGB(Unembed(v))
}

// InBounds сообщает, лежит ли вектор в допустимой области встраивания
// с запасом tol.
func InBounds(v Vector, tol float32) bool {
	return v.X >= -1-tol && v.X <= 1+tol &&
		v.Y >= -1-tol && v.Y <= 1+tol &&
		v.Z >= -tol && v.Z <= 1+tol
}
