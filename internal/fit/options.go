package fit

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
	"github.com/Raimguzhinov/curvequant/internal/curve"
)

// Strategy задаёт способ порождения кандидатов.
type Strategy uint8

const (
	// StrategyRandom: SearchDepth случайных кандидатов из сидированного потока.
	StrategyRandom Strategy = iota
	// StrategyGrid: полный перебор сетки по всем осям параметров.
	StrategyGrid
)

func (s Strategy) String() string {
	switch s {
	case StrategyRandom:
		return "random"
	case StrategyGrid:
		return "grid"
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// ParseStrategy разбирает имя стратегии.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random":
		return StrategyRandom, nil
	case "grid":
		return StrategyGrid, nil
	}
	return 0, fmt.Errorf("стратегия %q: %w", s, curve.ErrUnsupported)
}

// Ranges выбирает диапазоны, из которых берутся параметры кандидатов.
type Ranges uint8

const (
	// RangesWide: амплитуда [0,1], осцилляция [-1,2], гармоника [1,8].
	RangesWide Ranges = iota
	// RangesNarrow: амплитуда [0.1,1], осцилляция [0.1,1], гармоника [0.5,4.5].
	RangesNarrow
)

func (r Ranges) String() string {
	switch r {
	case RangesWide:
		return "wide"
	case RangesNarrow:
		return "narrow"
	}
	return fmt.Sprintf("Ranges(%d)", uint8(r))
}

// ParseRanges разбирает имя набора диапазонов.
func ParseRanges(s string) (Ranges, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wide":
		return RangesWide, nil
	case "narrow":
		return RangesNarrow, nil
	}
	return 0, fmt.Errorf("диапазоны %q: %w", s, curve.ErrUnsupported)
}

// Options настраивает BestFit.
type Options struct {
	NumPoints   int
	SearchDepth int
	// GridSteps: число значений на ось для StrategyGrid.
	GridSteps int
	Strategy  Strategy
	Ranges    Ranges
	Metric    curve.Metric
	Jitter    curve.JitterMode
	// Seed используется, только если Seeded. Иначе сид выбирается
	// случайно и возвращается в Result.
	Seed   uint64
	Seeded bool
	// Workers ограничивает число одновременно оцениваемых пачек.
	Workers int
	// BatchSize: число кандидатов в пачке; отмена проверяется между пачками.
	BatchSize       int
	BoundsTolerance float32
	Logger          *slog.Logger
}

// DefaultOptions возвращает настройки подбора по умолчанию.
func DefaultOptions() Options {
	return Options{
		NumPoints:       255,
		SearchDepth:     8192,
		GridSteps:       4,
		Strategy:        StrategyRandom,
		Ranges:          RangesWide,
		Metric:          curve.MetricWeighted,
		Jitter:          curve.JitterSeeded,
		BatchSize:       64,
		BoundsTolerance: colorspace.Tolerance,
	}
}

func (o Options) normalized() Options {
	if o.SearchDepth < 1 {
		o.SearchDepth = 1
	}
	if o.GridSteps < 1 {
		o.GridSteps = 1
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	if o.BoundsTolerance <= 0 {
		o.BoundsTolerance = colorspace.Tolerance
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
