// Package fit подбирает параметры кривой палитры под гистограмму цветов:
// порождает кандидатов, параллельно оценивает их взвешенную ошибку и
// выбирает минимум.
package fit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/chewxy/math32"
	"golang.org/x/sync/errgroup"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
	"github.com/Raimguzhinov/curvequant/internal/curve"
	"github.com/Raimguzhinov/curvequant/internal/progress"
)

// StageFit: имя этапа в отчётах progress.Reporter.
const StageFit = "fit"

// pcgStream разводит два слова состояния PCG при одном сиде.
const pcgStream = 0x9e3779b97f4a7c15

var (
	// ErrEmptyHistogram: в гистограмме нет ни одного пикселя.
	ErrEmptyHistogram = errors.New("пустая гистограмма")
	// ErrNoCandidate: ни один кандидат не дал конечной ошибки.
	ErrNoCandidate = errors.New("нет кандидата с конечной ошибкой")
)

// Histogram: взвешенный набор цветов в стабильном порядке.
type Histogram interface {
	Len() int
	At(i int) (colorspace.Color, int)
}

// RangeError сообщает о цвете, чей вектор вышел за границы встраивания.
type RangeError struct {
	Index  int
	Color  colorspace.Color
	Vector colorspace.Vector
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("цвет #%d %s: вектор %v вне границ встраивания", e.Index, e.Color.Hex(), e.Vector)
}

func (e *RangeError) Unwrap() error {
	return colorspace.ErrOutOfRange
}

// Result: лучший кандидат одного прогона.
type Result struct {
	Params     curve.Params `json:"params"`
	Error      float32      `json:"error"`
	Candidates int          `json:"candidates"`
	Seed       uint64       `json:"seed"`
	Strategy   Strategy     `json:"strategy"`
	Metric     curve.Metric `json:"metric"`
}

// Summary возвращает результат одной строкой.
func (r Result) Summary() string {
	return fmt.Sprintf("ошибка %.5f (%s/%s, %d кандидатов, seed %d): %s",
		r.Error, r.Strategy, r.Metric, r.Candidates, r.Seed, r.Params)
}

type target struct {
	color  colorspace.Color
	vec    colorspace.Vector
	weight float64
}

// embedTargets встраивает цвета гистограммы. Нулевые счётчики пропускаются.
func embedTargets(hist Histogram) ([]target, float64) {
	targets := make([]target, 0, hist.Len())
	var total float64
	for i := 0; i < hist.Len(); i++ {
		c, n := hist.At(i)
		if n <= 0 {
			continue
		}
		targets = append(targets, target{color: c, vec: colorspace.EmbedColor(c), weight: float64(n)})
		total += float64(n)
	}
	return targets, total
}

func checkBounds(targets []target, tol float32) error {
	for i, t := range targets {
		if !colorspace.InBounds(t.vec, tol) {
			return &RangeError{Index: i, Color: t.color, Vector: t.vec}
		}
	}
	return nil
}

// evaluate считает ошибку кандидата по метрике m. buf переиспользуется
// под точки кривой и возвращается для следующего вызова.
func evaluate(p curve.Params, targets []target, total float64, m curve.Metric, buf []colorspace.Vector) (float32, []colorspace.Vector, error) {
	points, err := p.AppendPoints(buf[:0])
	if err != nil {
		return 0, points, err
	}

	var sum float64
	for _, t := range targets {
		_, d := curve.ClosestIndex(points, t.vec, m)
		if m == curve.MetricSquared {
			sum += float64(d)
		} else {
			sum += float64(d) * t.weight
		}
	}
	if m == curve.MetricSquared {
		return float32(sum / float64(len(targets))), points, nil
	}
	return float32(sum / total), points, nil
}

// Evaluate возвращает ошибку кривой p на гистограмме по метрике m.
func Evaluate(hist Histogram, p curve.Params, m curve.Metric) (float32, error) {
	targets, total := embedTargets(hist)
	if len(targets) == 0 {
		return 0, ErrEmptyHistogram
	}
	e, _, err := evaluate(p, targets, total, m, nil)
	return e, err
}

// reduce возвращает индекс минимальной ошибки. При равенстве побеждает
// первый кандидат, NaN не побеждает никогда.
func reduce(errs []float32) (int, float32) {
	best, bestErr := -1, math32.Inf(1)
	for i, e := range errs {
		if math32.IsNaN(e) {
			continue
		}
		if best < 0 || e < bestErr {
			best, bestErr = i, e
		}
	}
	return best, bestErr
}

// BestFit подбирает кривую, минимизирующую ошибку на гистограмме.
// Отмена ctx проверяется между пачками кандидатов. Прогресс сообщается
// progress.Reporter из ctx под именем StageFit.
func BestFit(ctx context.Context, hist Histogram, opts Options) (Result, error) {
	opts = opts.normalized()
	log := opts.Logger

	if opts.NumPoints < 1 {
		return Result{}, fmt.Errorf("num_points=%d: %w", opts.NumPoints, curve.ErrSamplingDensity)
	}
	targets, total := embedTargets(hist)
	if len(targets) == 0 {
		return Result{}, ErrEmptyHistogram
	}
	if err := checkBounds(targets, opts.BoundsTolerance); err != nil {
		return Result{}, fmt.Errorf("проверка гистограммы: %w", err)
	}

	seed := opts.Seed
	if !opts.Seeded {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^pcgStream))

	var candidates []curve.Params
	switch opts.Strategy {
	case StrategyRandom:
		candidates = randomCandidates(rng, opts, opts.SearchDepth)
	case StrategyGrid:
		candidates = gridCandidates(rng, opts)
	default:
		return Result{}, fmt.Errorf("стратегия %v: %w", opts.Strategy, curve.ErrUnsupported)
	}

	log.Debug("подбор кривой",
		"цветов", len(targets),
		"кандидатов", len(candidates),
		"стратегия", opts.Strategy,
		"метрика", opts.Metric,
		"seed", seed,
	)
	start := time.Now()

	errs := make([]float32, len(candidates))
	counter := progress.Start(ctx, StageFit, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for lo := 0; lo < len(candidates); lo += opts.BatchSize {
		if gctx.Err() != nil {
			break
		}
		hi := min(lo+opts.BatchSize, len(candidates))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var buf []colorspace.Vector
			for i := lo; i < hi; i++ {
				e, points, err := evaluate(candidates[i], targets, total, opts.Metric, buf)
				if err != nil {
					return fmt.Errorf("кандидат %d: %w", i, err)
				}
				buf = points
				errs[i] = e
			}
			counter.Add(hi - lo)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	best, bestErr := reduce(errs)
	if best < 0 {
		return Result{}, ErrNoCandidate
	}

	res := Result{
		Params:     candidates[best],
		Error:      bestErr,
		Candidates: len(candidates),
		Seed:       seed,
		Strategy:   opts.Strategy,
		Metric:     opts.Metric,
	}
	log.Debug("кривая подобрана", "ошибка", res.Error, "индекс", best, "время", time.Since(start))
	return res, nil
}
