package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/Raimguzhinov/curvequant/internal/config"
	"github.com/Raimguzhinov/curvequant/internal/imageio"
	"github.com/Raimguzhinov/curvequant/internal/journal"
	"github.com/Raimguzhinov/curvequant/internal/progress"
	"github.com/Raimguzhinov/curvequant/internal/quant"
	"github.com/Raimguzhinov/curvequant/internal/report"
	"github.com/Raimguzhinov/curvequant/internal/watch"
)

// FitFlags переопределяют секции [fit] и [quantize] конфигурации.
// Незаданные флаги остаются nil и не трогают значения из файла.
type FitFlags struct {
	Top      *int    `short:"t" long:"top" description:"Сколько самых частых цветов участвует в подборе (0 означает все)" value-name:"N"`
	Points   *int    `short:"n" long:"points" description:"Число точек кривой" value-name:"N"`
	Depth    *int    `short:"d" long:"depth" description:"Число случайных кандидатов" value-name:"N"`
	Seed     *uint64 `long:"seed" description:"Сид для воспроизводимого подбора" value-name:"N"`
	Strategy *string `long:"strategy" description:"Порождение кандидатов" choice:"random" choice:"grid"`
	Steps    *int    `long:"grid-steps" description:"Значений на ось для стратегии grid" value-name:"N"`
	Metric   *string `long:"metric" description:"Метрика ошибки" choice:"weighted" choice:"squared"`
	Ranges   *string `long:"ranges" description:"Диапазоны параметров" choice:"wide" choice:"narrow"`
	Jitter   *string `long:"jitter" description:"Дрожание угла" choice:"seeded" choice:"fresh" choice:"off"`
	Workers  *int    `short:"j" long:"workers" description:"Число параллельных пачек" value-name:"N"`
	Sample   *int    `long:"sample-size" description:"Уменьшить большую сторону до N перед гистограммой" value-name:"N"`
	Journal  *string `long:"journal" description:"SQLite-журнал подборов" value-name:"FILE"`
}

func (f FitFlags) apply(cfg config.Config) config.Config {
	setInt(&cfg.Quantize.Top, f.Top)
	setInt(&cfg.Quantize.SampleSize, f.Sample)
	setInt(&cfg.Fit.Points, f.Points)
	setInt(&cfg.Fit.Depth, f.Depth)
	setInt(&cfg.Fit.GridSteps, f.Steps)
	setInt(&cfg.Fit.Workers, f.Workers)
	setString(&cfg.Fit.Strategy, f.Strategy)
	setString(&cfg.Fit.Metric, f.Metric)
	setString(&cfg.Fit.Ranges, f.Ranges)
	setString(&cfg.Fit.Jitter, f.Jitter)
	setString(&cfg.Journal, f.Journal)
	if f.Seed != nil {
		seed := *f.Seed
		cfg.Fit.Seed = &seed
	}
	return cfg
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// OutputFlags управляют тем, что записывается рядом с результатом.
type OutputFlags struct {
	Output string `short:"o" long:"output" description:"Файл результата (только для одного входа)" value-name:"FILE"`
	Format string `short:"f" long:"format" description:"Формат результата: png, bmp, avif, jpeg, webp, gif, pcx"`
	Dir    string `long:"dir" description:"Каталог для результатов" value-name:"DIR"`
	Report string `long:"report" description:"Записать отчёт в Markdown" value-name:"FILE"`
	Strip  bool   `long:"strip" description:"Записать полосу палитры <имя>_strip.png"`
	Wheel  bool   `long:"wheel" description:"Записать цветовой круг в палитре кривой <имя>_wheel.png"`
}

func (f OutputFlags) apply(cfg config.Config) config.Config {
	if f.Format != "" {
		cfg.Output.Format = f.Format
	}
	if f.Dir != "" {
		cfg.Output.Dir = f.Dir
	}
	if f.Report != "" {
		cfg.Output.Report = f.Report
	}
	return cfg
}

// app: всё, что нужно командам после разбора флагов.
type app struct {
	log       *slog.Logger
	cfg       config.Config
	quantizer *quant.CurveQuantizer
	journal   *journal.Store
	bar       *report.ProgressBar
	profile   termenv.Profile
}

func newApp(global *Options, ff FitFlags, of OutputFlags) (*app, error) {
	log := newLogger(global.Debug)
	slog.SetDefault(log)

	cfg := config.Default()
	if global.Config != "" {
		var err error
		if cfg, err = config.Load(global.Config); err != nil {
			return nil, err
		}
	}
	cfg = of.apply(ff.apply(cfg)).Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := cfg.FitOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = log

	a := &app{
		log: log,
		cfg: cfg,
		quantizer: &quant.CurveQuantizer{
			Options:    opts,
			TopColors:  cfg.Quantize.Top,
			SampleSize: cfg.Quantize.SampleSize,
			Logger:     log,
		},
		profile: termenv.Ascii,
	}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		a.profile = termenv.EnvColorProfile()
	}
	if !global.Debug && isatty.IsTerminal(os.Stderr.Fd()) {
		a.bar = report.NewProgressBar(os.Stderr, termenv.EnvColorProfile())
	}

	if cfg.Journal != "" {
		store, err := journal.Open(cfg.Journal)
		if err != nil {
			return nil, err
		}
		a.journal = store
		a.quantizer.Cache = store
		if !opts.Seeded {
			log.Warn("журнал используется только при заданном --seed")
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn("закрытие журнала", "err", err)
		}
	}
}

// context добавляет индикатор прогресса, если он включён.
func (a *app) context(ctx context.Context) context.Context {
	if a.bar == nil {
		return ctx
	}
	return progress.WithReporter(ctx, a.bar)
}

func (a *app) finishProgress() {
	if a.bar != nil {
		a.bar.Finish()
	}
}

// outputPath выбирает имя результата для input.
func (a *app) outputPath(input string) string {
	dir := a.cfg.Output.Dir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+outputSuffix+"."+a.cfg.Output.Format)
}

// outputSuffix отличает результаты от исходных файлов, в том числе в watch.
const outputSuffix = "_curve"

func sidePath(output, name string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + "_" + name + ".png"
}

type quantizeCommand struct {
	global *Options
	FitFlags
	OutputFlags
	Show bool `short:"s" long:"show" description:"Показать исходное и перекрашенное изображения"`
}

func (c *quantizeCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("не заданы входные файлы")
	}
	if c.Output != "" && len(args) > 1 {
		return fmt.Errorf("-o допустим только с одним входным файлом")
	}
	if c.Output != "" && !imageio.Supported(c.Output) {
		return fmt.Errorf("-o %s: %w", c.Output, imageio.ErrUnsupportedFormat)
	}

	a, err := newApp(c.global, c.FitFlags, c.OutputFlags)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	jobs := make([]job, len(args))
	for i, input := range args {
		jobs[i] = job{input: input, output: a.outputPath(input)}
	}
	if c.Output != "" {
		jobs[0].output = c.Output
	}

	done, err := a.runPipeline(ctx, jobs, c.Strip, c.Wheel)
	if err != nil {
		return err
	}
	if err := a.writeReport(done); err != nil {
		return err
	}
	if c.Show && len(done) > 0 {
		return a.show(done[0])
	}
	return nil
}

type fitCommand struct {
	global *Options
	FitFlags
	OutputFlags
	Colors int `long:"colors" default:"16" description:"Сколько цветов гистограммы напечатать"`
}

func (c *fitCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("не заданы входные файлы")
	}
	a, err := newApp(c.global, c.FitFlags, c.OutputFlags)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	for _, input := range args {
		img, err := imageio.Load(input)
		if err != nil {
			return err
		}
		hist, res, cached, err := a.quantizer.Fit(a.context(ctx), img)
		a.finishProgress()
		if err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}

		fmt.Printf("%s: %d×%d, %d цветов\n", input, img.Bounds().Dx(), img.Bounds().Dy(), len(hist))
		if err := report.WriteHistogram(os.Stdout, hist, c.Colors, a.profile); err != nil {
			return err
		}
		fmt.Println(res.Params.Describe())
		fmt.Println(res.Summary())
		if cached {
			fmt.Println("(из журнала)")
		}

		if c.Strip || c.Wheel {
			rm, err := quant.NewRemapper(res.Params)
			if err != nil {
				return err
			}
			if err := a.writeExtras(ctx, a.outputPath(input), rm, c.Strip, c.Wheel); err != nil {
				return err
			}
		}
	}
	return nil
}

type watchCommand struct {
	global *Options
	FitFlags
	OutputFlags
}

func (c *watchCommand) Execute(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("нужен ровно один каталог")
	}
	a, err := newApp(c.global, c.FitFlags, c.OutputFlags)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	w := &watch.Watcher{
		Dir:      args[0],
		Debounce: a.cfg.Debounce(),
		Match:    watchable,
		Logger:   a.log,
		Handle: func(ctx context.Context, path string) error {
			done, err := a.runPipeline(ctx, []job{{input: path, output: a.outputPath(path)}}, c.Strip, c.Wheel)
			if err != nil {
				return err
			}
			return a.writeReport(done)
		},
	}
	return w.Run(ctx)
}

// watchable пропускает собственные результаты и неизвестные форматы.
func watchable(path string) bool {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if strings.HasSuffix(base, outputSuffix) || strings.HasSuffix(base, outputSuffix+"_strip") ||
		strings.HasSuffix(base, outputSuffix+"_wheel") || strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return imageio.Supported(path)
}

type historyCommand struct {
	global  *Options
	Journal string `long:"journal" required:"true" description:"SQLite-журнал подборов" value-name:"FILE"`
	Limit   int    `short:"n" long:"limit" default:"20" description:"Сколько записей показать"`
}

func (c *historyCommand) Execute([]string) error {
	store, err := journal.Open(c.Journal)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(context.Background(), c.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("Журнал пуст")
		return nil
	}
	for _, r := range records {
		fmt.Printf("%s  %s  %d цветов  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.RunID, r.Colors, r.Result.Summary())
	}
	return nil
}
