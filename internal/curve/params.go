// Package curve описывает параметрическую кривую палитры во встраивании
// colorspace, метрику ошибки между точкой кривой и цветом и поиск
// ближайшей точки кривой.
package curve

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/chewxy/math32"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
)

// Schema: текущая версия набора параметров.
const Schema = 1

const (
	// JitterMin и JitterMax ограничивают множитель дрожания угла.
	JitterMin = 0.5
	JitterMax = 1.5
)

var (
	// ErrSamplingDensity: число точек кривой меньше единицы.
	ErrSamplingDensity = errors.New("число точек кривой должно быть не меньше 1")
	// ErrUnsupported: схема или встраивание параметров не поддерживаются.
	ErrUnsupported = errors.New("неподдерживаемые параметры кривой")
)

// Embedding помечает, для какого встраивания цвета заданы параметры.
type Embedding uint8

const (
	// EmbeddingDisk: диск с осью: XY в [-1,1]², Z в [0,1], Z задаётся z_range.
	EmbeddingDisk Embedding = iota
)

func (e Embedding) String() string {
	if e == EmbeddingDisk {
		return "disk"
	}
	return fmt.Sprintf("Embedding(%d)", uint8(e))
}

// JitterMode задаёт источник множителя дрожания угла в Sample.
type JitterMode uint8

const (
	// JitterSeeded выводит множитель из (Seed, t): одна и та же кривая
	// всегда даёт одни и те же точки.
	JitterSeeded JitterMode = iota
	// JitterFresh берёт новый случайный множитель при каждом вызове Sample.
	// Повторный поиск с тем же пулом кандидатов может выбрать другую кривую.
	JitterFresh
	// JitterOff отключает дрожание (множитель 1).
	JitterOff
)

var jitterNames = map[JitterMode]string{
	JitterSeeded: "seeded",
	JitterFresh:  "fresh",
	JitterOff:    "off",
}

func (m JitterMode) String() string {
	if name, ok := jitterNames[m]; ok {
		return name
	}
	return fmt.Sprintf("JitterMode(%d)", uint8(m))
}

// ParseJitterMode разбирает имя режима дрожания.
func ParseJitterMode(s string) (JitterMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for mode, n := range jitterNames {
		if n == name {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("режим дрожания %q: %w", s, ErrUnsupported)
}

// Params полностью определяет одну кривую-кандидата.
type Params struct {
	Schema           int        `json:"schema"`
	Embedding        Embedding  `json:"embedding"`
	Amplitude        float32    `json:"amplitude"`
	AmplitudePhase   float32    `json:"amplitudePhase"`
	Oscillation      float32    `json:"oscillation"`
	OscillationPhase float32    `json:"oscillationPhase"`
	Harmonic         float32    `json:"harmonic"`
	ZMin             float32    `json:"zMin"`
	ZMax             float32    `json:"zMax"`
	NumPoints        int        `json:"numPoints"`
	Jitter           JitterMode `json:"jitter"`
	Seed             uint64     `json:"seed"`
}

// Validate проверяет, что по параметрам можно построить точки кривой.
func (p Params) Validate() error {
	if p.Schema > Schema {
		return fmt.Errorf("схема параметров %d: %w", p.Schema, ErrUnsupported)
	}
	if p.Embedding != EmbeddingDisk {
		return fmt.Errorf("встраивание %v: %w", p.Embedding, ErrUnsupported)
	}
	if p.NumPoints < 1 {
		return fmt.Errorf("num_points=%d: %w", p.NumPoints, ErrSamplingDensity)
	}
	return nil
}

// Position возвращает параметр t i-й точки кривой. При одной точке
// это всегда 0.
func (p Params) Position(i int) float32 {
	if p.NumPoints <= 1 {
		return 0
	}
	return float32(i) / float32(p.NumPoints-1)
}

// Sample вычисляет точку кривой для t из [0,1].
func (p Params) Sample(t float32) colorspace.Vector {
	angle := 2 * math32.Pi * p.Harmonic * t * p.jitter(t)
	radius := p.Amplitude*math32.Sin(angle+p.AmplitudePhase) +
		p.Oscillation*math32.Sin(p.Harmonic*angle+p.OscillationPhase)

	return colorspace.Vector{
		X: colorspace.Clamp(radius*math32.Cos(angle)*p.Amplitude, -1, 1),
		Y: colorspace.Clamp(radius*math32.Sin(angle)*p.Amplitude, -1, 1),
		Z: colorspace.Clamp(p.ZMin+t*(p.ZMax-p.ZMin), 0, 1),
	}
}

// Points возвращает NumPoints точек при t_i = i/(NumPoints-1).
func (p Params) Points() ([]colorspace.Vector, error) {
	return p.AppendPoints(nil)
}

// AppendPoints дописывает точки кривой в dst, чтобы горячий цикл
// подбора мог переиспользовать буфер.
func (p Params) AppendPoints(dst []colorspace.Vector) ([]colorspace.Vector, error) {
	if err := p.Validate(); err != nil {
		return dst, err
	}
	for i := 0; i < p.NumPoints; i++ {
		dst = append(dst, p.Sample(p.Position(i)))
	}
	return dst, nil
}

func (p Params) jitter(t float32) float32 {
	switch p.Jitter {
	case JitterOff:
		return 1
	case JitterFresh:
		return JitterMin + unit(rand.Uint64())*(JitterMax-JitterMin)
	default:
		h := mix64(p.Seed ^ uint64(math.Float32bits(t))*0x9e3779b97f4a7c15)
		return JitterMin + unit(h)*(JitterMax-JitterMin)
	}
}

// unit отображает старшие 23 бита в [0,1). С 24 битами сумма
// JitterMin+u округлялась бы до JitterMax.
func unit(bits uint64) float32 {
	return float32(bits>>41) / (1 << 23)
}

// mix64: финализатор splitmix64.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
