package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Raimguzhinov/curvequant/internal/imageio"
	"github.com/Raimguzhinov/curvequant/internal/preview"
	"github.com/Raimguzhinov/curvequant/internal/quant"
	"github.com/Raimguzhinov/curvequant/internal/report"
)

const (
	stripCell   = 4
	stripHeight = 48
	wheelSize   = 512
)

// job проходит конвейер загрузка → перекраска → запись.
type job struct {
	input   string
	output  string
	img     image.Image
	outcome quant.Outcome
	started time.Time
	elapsed time.Duration
}

// runPipeline обрабатывает задания тремя горутинами, связанными каналами.
// Перекраска идёт по одному изображению: подбор и так занимает все ядра.
func (a *app) runPipeline(ctx context.Context, jobs []job, strip, wheel bool) ([]job, error) {
	loaded := make(chan job)
	quantized := make(chan job)
	var done []job

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(loaded)
		for _, j := range jobs {
			j.started = time.Now()
			img, err := imageio.Load(j.input)
			if err != nil {
				return err
			}
			j.img = img
			a.log.Debug("изображение загружено", "файл", j.input,
				"ширина", img.Bounds().Dx(), "высота", img.Bounds().Dy())
			select {
			case loaded <- j:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		defer close(quantized)
		for j := range loaded {
			out, err := a.quantizer.Run(a.context(ctx), j.img)
			a.finishProgress()
			if err != nil {
				return fmt.Errorf("%s: %w", j.input, err)
			}
			j.outcome = out
			select {
			case quantized <- j:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		for j := range quantized {
			if dir := filepath.Dir(j.output); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := imageio.Save(j.output, j.outcome.Image); err != nil {
				return err
			}
			if err := a.writeExtras(ctx, j.output, j.outcome.Remapper, strip, wheel); err != nil {
				return err
			}
			j.elapsed = time.Since(j.started)
			a.log.Info("файл записан",
				"файл", j.output,
				"ошибка", j.outcome.Result.Error,
				"из журнала", j.outcome.Cached,
				"время", j.elapsed.Round(time.Millisecond),
			)
			done = append(done, j)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return done, err
	}
	return done, nil
}

// writeExtras записывает полосу палитры и цветовой круг рядом с output.
func (a *app) writeExtras(ctx context.Context, output string, rm *quant.Remapper, strip, wheel bool) error {
	if strip {
		path := sidePath(output, "strip")
		if err := imageio.Save(path, report.Strip(rm.Palette(), stripCell, stripHeight)); err != nil {
			return err
		}
		a.log.Debug("полоса палитры записана", "файл", path)
	}
	if wheel {
		img, err := report.PaletteWheel(ctx, rm, wheelSize)
		if err != nil {
			return err
		}
		path := sidePath(output, "wheel")
		if err := imageio.Save(path, img); err != nil {
			return err
		}
		a.log.Debug("цветовой круг записан", "файл", path)
	}
	return nil
}

// writeReport дописывает отчёт в Markdown, если он запрошен.
func (a *app) writeReport(done []job) error {
	if a.cfg.Output.Report == "" || len(done) == 0 {
		return nil
	}
	entries := make([]report.Entry, len(done))
	for i, j := range done {
		entries[i] = report.Entry{Input: j.input, Output: j.output, Outcome: j.outcome, Elapsed: j.elapsed}
	}

	if err := report.AppendMarkdown(a.cfg.Output.Report, entries); err != nil {
		return err
	}
	a.log.Info("отчёт записан", "файл", a.cfg.Output.Report)
	return nil
}

func (a *app) show(j job) error {
	return preview.Show(a.log,
		preview.Window{Title: "Исходное: " + filepath.Base(j.input), Image: j.img},
		preview.Window{Title: "Кривая: " + filepath.Base(j.output), Image: j.outcome.Image},
	)
}
