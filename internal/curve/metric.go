package curve

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
)

// Веса слагаемых ошибки: промах по оттенку штрафуется сильнее всего,
// затем по светлоте, затем по насыщенности.
const (
	WeightLum = 1.24
	WeightSat = 0.64
)

// Metric выбирает, как сравнивать точку кривой с цветом.
type Metric uint8

const (
	// MetricWeighted: угловая ошибка оттенка плюс взвешенные разности
	// светлоты и насыщенности (см. Error).
	MetricWeighted Metric = iota
	// MetricSquared: квадрат евклидова расстояния во встраивании.
	MetricSquared
)

func (m Metric) String() string {
	switch m {
	case MetricWeighted:
		return "weighted"
	case MetricSquared:
		return "squared"
	}
	return fmt.Sprintf("Metric(%d)", uint8(m))
}

// ParseMetric разбирает имя метрики.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weighted":
		return MetricWeighted, nil
	case "squared":
		return MetricSquared, nil
	}
	return 0, fmt.Errorf("метрика %q: %w", s, ErrUnsupported)
}

// Distance вычисляет ошибку точки кривой p относительно цели target.
func (m Metric) Distance(p, target colorspace.Vector) float32 {
	if m == MetricSquared {
		return SquaredDistance(p, target)
	}
	return Error(p, target)
}

// SquaredDistance: квадрат евклидова расстояния между p и target.
func SquaredDistance(p, target colorspace.Vector) float32 {
	return p.DistanceSquared(target)
}

// Error: взвешенная ошибка приближения цвета target точкой кривой p.
// Всегда неотрицательна, Error(p, p) == 0.
func Error(p, target colorspace.Vector) float32 {
	lum := math32.Abs(p.Planar() - target.Planar())
	sat := math32.Abs(p.Z - target.Z)
	return HueError(p, target) + WeightLum*lum + WeightSat*sat
}

// HueError: угол между проекциями векторов на плоскость XY, делённый
// на π, в [0,1]. Угол берётся через скалярное и векторное произведения,
// поэтому переход оттенка через 0 не влияет на результат. Если одна из
// проекций нулевая, угол не определён и ошибка считается нулевой.
func HueError(a, b colorspace.Vector) float32 {
	if (a.X == 0 && a.Y == 0) || (b.X == 0 && b.Y == 0) {
		return 0
	}
	dot := a.X*b.X + a.Y*b.Y
	// явные преобразования запрещают FMA: для a == b векторное
	// произведение должно быть ровно нулём
	cross := float32(a.X*b.Y) - float32(a.Y*b.X)
	return math32.Atan2(math32.Abs(cross), dot) / math32.Pi
}
