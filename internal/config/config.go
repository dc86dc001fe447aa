// Package config загружает настройки из TOML-файла. Флаги командной
// строки применяются поверх загруженных значений.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Raimguzhinov/curvequant/internal/curve"
	"github.com/Raimguzhinov/curvequant/internal/fit"
	"github.com/Raimguzhinov/curvequant/internal/imageio"
)

const (
	maxPoints    = 4096
	maxGridSteps = 8
	maxWorkers   = 256
)

// ErrInvalid: настройки противоречивы или вне допустимых значений.
var ErrInvalid = errors.New("некорректная конфигурация")

// Fit: секция [fit].
type Fit struct {
	Points    int     `toml:"points"`
	Depth     int     `toml:"depth"`
	GridSteps int     `toml:"grid_steps"`
	Strategy  string  `toml:"strategy"`
	Ranges    string  `toml:"ranges"`
	Metric    string  `toml:"metric"`
	Jitter    string  `toml:"jitter"`
	Seed      *uint64 `toml:"seed,omitempty"`
	Workers   int     `toml:"workers"`
	BatchSize int     `toml:"batch_size"`
}

// Quantize: секция [quantize].
type Quantize struct {
	Top        int `toml:"top"`
	SampleSize int `toml:"sample_size"`
}

// Output: секция [output].
type Output struct {
	// Format: расширение файла результата, если -o не задан.
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
	Report string `toml:"report"`
}

// Watch: секция [watch].
type Watch struct {
	DebounceMS int `toml:"debounce_ms"`
}

// Config: все настройки программы.
type Config struct {
	Fit      Fit      `toml:"fit"`
	Quantize Quantize `toml:"quantize"`
	Output   Output   `toml:"output"`
	Watch    Watch    `toml:"watch"`
	Journal  string   `toml:"journal"`
}

// Default возвращает настройки по умолчанию.
func Default() Config {
	d := fit.DefaultOptions()
	return Config{
		Fit: Fit{
			Points:    d.NumPoints,
			Depth:     d.SearchDepth,
			GridSteps: d.GridSteps,
			Strategy:  d.Strategy.String(),
			Ranges:    d.Ranges.String(),
			Metric:    d.Metric.String(),
			Jitter:    d.Jitter.String(),
			BatchSize: d.BatchSize,
		},
		Quantize: Quantize{Top: 256},
		Output:   Output{Format: "png"},
		Watch:    Watch{DebounceMS: 300},
	}
}

// Load читает path поверх Default. Неизвестные ключи считаются ошибкой.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("чтение конфигурации: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("%s: %s: %w", path, strict.String(), ErrInvalid)
		}
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save записывает конфигурацию в TOML.
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Normalized приводит мягкие настройки к допустимым значениям.
// Ошибки, которые нельзя исправить молча, проверяет Validate.
func (c Config) Normalized() Config {
	c.Fit.Depth = clampInt(c.Fit.Depth, 1, 1<<20)
	c.Fit.GridSteps = clampInt(c.Fit.GridSteps, 1, maxGridSteps)
	if c.Fit.Workers <= 0 {
		c.Fit.Workers = runtime.GOMAXPROCS(0)
	}
	c.Fit.Workers = clampInt(c.Fit.Workers, 1, maxWorkers)
	if c.Fit.BatchSize <= 0 {
		c.Fit.BatchSize = 64
	}
	c.Fit.Strategy = strings.ToLower(strings.TrimSpace(c.Fit.Strategy))
	c.Fit.Ranges = strings.ToLower(strings.TrimSpace(c.Fit.Ranges))
	c.Fit.Metric = strings.ToLower(strings.TrimSpace(c.Fit.Metric))
	c.Fit.Jitter = strings.ToLower(strings.TrimSpace(c.Fit.Jitter))

	c.Quantize.Top = max(c.Quantize.Top, 0)
	c.Quantize.SampleSize = max(c.Quantize.SampleSize, 0)

	c.Output.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Output.Format), "."))
	if c.Output.Format == "" {
		c.Output.Format = "png"
	}
	c.Watch.DebounceMS = clampInt(c.Watch.DebounceMS, 0, 60_000)
	return c
}

// Validate проверяет то, что Normalized не исправляет.
func (c Config) Validate() error {
	if c.Fit.Points < 1 {
		return fmt.Errorf("fit.points=%d: %w", c.Fit.Points, curve.ErrSamplingDensity)
	}
	if c.Fit.Points > maxPoints {
		return fmt.Errorf("fit.points=%d больше %d: %w", c.Fit.Points, maxPoints, ErrInvalid)
	}
	if _, err := imageio.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w: %w", ErrInvalid, err)
	}
	if _, err := c.FitOptions(); err != nil {
		return err
	}
	return nil
}

// FitOptions переводит секцию [fit] в fit.Options.
func (c Config) FitOptions() (fit.Options, error) {
	o := fit.DefaultOptions()
	o.NumPoints = c.Fit.Points
	o.SearchDepth = c.Fit.Depth
	o.GridSteps = c.Fit.GridSteps
	o.Workers = c.Fit.Workers
	o.BatchSize = c.Fit.BatchSize
	if c.Fit.Seed != nil {
		o.Seed, o.Seeded = *c.Fit.Seed, true
	}

	var err error
	if o.Strategy, err = fit.ParseStrategy(c.Fit.Strategy); err != nil {
		return o, fmt.Errorf("fit.strategy: %w", err)
	}
	if o.Ranges, err = fit.ParseRanges(c.Fit.Ranges); err != nil {
		return o, fmt.Errorf("fit.ranges: %w", err)
	}
	if o.Metric, err = curve.ParseMetric(c.Fit.Metric); err != nil {
		return o, fmt.Errorf("fit.metric: %w", err)
	}
	if o.Jitter, err = curve.ParseJitterMode(c.Fit.Jitter); err != nil {
		return o, fmt.Errorf("fit.jitter: %w", err)
	}
	return o, nil
}

// Debounce возвращает задержку обработки событий каталога.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
