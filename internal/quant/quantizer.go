package quant

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/Raimguzhinov/curvequant/internal/curve"
	"github.com/Raimguzhinov/curvequant/internal/fit"
)

// Quantizer перекрашивает изображение в палитру, подобранную под него.
type Quantizer interface {
	Quantize(ctx context.Context, img image.Image) (*image.NRGBA, fit.Result, error)
}

// ResultCache хранит результаты воспроизводимых подборов между запусками.
type ResultCache interface {
	Lookup(ctx context.Context, hist fit.Histogram, opts fit.Options) (fit.Result, bool, error)
	Store(ctx context.Context, hist fit.Histogram, opts fit.Options, res fit.Result) error
}

// CurveQuantizer: гистограмма, отбор частых цветов, подбор кривой, перекраска.
type CurveQuantizer struct {
	Options fit.Options
	// TopColors ограничивает число цветов, участвующих в подборе.
	// Перекрашиваются при этом все пиксели.
	TopColors int
	// SampleSize уменьшает изображение перед построением гистограммы.
	SampleSize int
	Cache      ResultCache
	Logger     *slog.Logger
}

// Outcome: всё, что известно после обработки одного изображения.
type Outcome struct {
	Image     *image.NRGBA
	Result    fit.Result
	Histogram Histogram
	Remapper  *Remapper
	Cached    bool
}

func (q *CurveQuantizer) logger() *slog.Logger {
	if q.Logger != nil {
		return q.Logger
	}
	return slog.Default()
}

// cacheable: только сидированный подбор без свежего дрожания
// воспроизводим и может браться из кэша.
func (q *CurveQuantizer) cacheable() bool {
	return q.Cache != nil && q.Options.Seeded && q.Options.Jitter != curve.JitterFresh
}

// Fit строит гистограмму img и подбирает под неё кривую.
func (q *CurveQuantizer) Fit(ctx context.Context, img image.Image) (Histogram, fit.Result, bool, error) {
	log := q.logger()

	hist := BuildHistogram(Downscale(img, q.SampleSize))
	top := hist.Top(q.TopColors)
	log.Debug("гистограмма построена", "цветов", len(hist), "для подбора", len(top))

	opts := q.Options
	if opts.Logger == nil {
		opts.Logger = log
	}

	if q.cacheable() {
		res, ok, err := q.Cache.Lookup(ctx, top, opts)
		if err != nil {
			log.Warn("журнал подборов недоступен", "err", err)
		} else if ok {
			log.Debug("результат взят из журнала", "ошибка", res.Error)
			return hist, res, true, nil
		}
	}

	res, err := fit.BestFit(ctx, top, opts)
	if err != nil {
		return hist, fit.Result{}, false, fmt.Errorf("подбор кривой: %w", err)
	}

	if q.cacheable() {
		if err := q.Cache.Store(ctx, top, opts, res); err != nil {
			log.Warn("не удалось записать подбор в журнал", "err", err)
		}
	}
	return hist, res, false, nil
}

// Run подбирает кривую и перекрашивает img.
func (q *CurveQuantizer) Run(ctx context.Context, img image.Image) (Outcome, error) {
	hist, res, cached, err := q.Fit(ctx, img)
	if err != nil {
		return Outcome{}, err
	}
	rm, err := NewRemapper(res.Params)
	if err != nil {
		return Outcome{}, fmt.Errorf("палитра кривой: %w", err)
	}
	out, err := rm.Image(ctx, img)
	if err != nil {
		return Outcome{}, fmt.Errorf("перекраска: %w", err)
	}
	return Outcome{Image: out, Result: res, Histogram: hist, Remapper: rm, Cached: cached}, nil
}

// Quantize реализует Quantizer.
func (q *CurveQuantizer) Quantize(ctx context.Context, img image.Image) (*image.NRGBA, fit.Result, error) {
	o, err := q.Run(ctx, img)
	if err != nil {
		return nil, fit.Result{}, err
	}
	return o.Image, o.Result, nil
}
