package curve

import (
	"github.com/chewxy/math32"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
)

// ClosestIndex линейно перебирает точки и возвращает индекс и ошибку
// ближайшей к query. При равенстве побеждает первая точка. Для пустого
// среза возвращает -1.
func ClosestIndex(points []colorspace.Vector, query colorspace.Vector, m Metric) (int, float32) {
	if len(points) == 0 {
		return -1, math32.Inf(1)
	}

	best, bestErr := 0, math32.Inf(1)
	for i, pt := range points {
		if d := m.Distance(pt, query); d < bestErr {
			best, bestErr = i, d
		}
	}
	return best, bestErr
}

// ClosestPoint возвращает точку кривой, ближайшую к query по Error.
// Точки генерируются заново при каждом вызове.
func (p Params) ClosestPoint(query colorspace.Vector) (colorspace.Vector, error) {
	points, err := p.Points()
	if err != nil {
		return colorspace.Vector{}, err
	}
	i, _ := ClosestIndex(points, query, MetricWeighted)
	return points[i], nil
}

// ClosestParameter возвращает параметр t ближайшей к query точки кривой.
func (p Params) ClosestParameter(query colorspace.Vector) (float32, error) {
	points, err := p.Points()
	if err != nil {
		return 0, err
	}
	i, _ := ClosestIndex(points, query, MetricWeighted)
	return p.Position(i), nil
}
