// Package watch следит за каталогом и передаёт обработчику новые или
// изменённые файлы, выждав, пока запись в них утихнет.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler обрабатывает один файл. Ошибка записывается в лог и не
// останавливает наблюдение.
type Handler func(ctx context.Context, path string) error

// Watcher наблюдает за одним каталогом без вложенных.
type Watcher struct {
	Dir string
	// Debounce: сколько ждать после последнего события по файлу.
	Debounce time.Duration
	// Match отбирает интересующие файлы; nil пропускает все.
	Match  func(path string) bool
	Handle Handler
	Logger *slog.Logger
}

func (w *Watcher) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// Run блокируется до отмены ctx. Обработчик вызывается из горутины Run,
// по одному файлу за раз.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.logger()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("наблюдение за %s: %w", w.Dir, err)
	}
	log.Info("наблюдение за каталогом", "каталог", w.Dir)

	tick := max(w.Debounce/4, 10*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	// время последнего события по каждому файлу
	pending := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if w.Match != nil && !w.Match(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("ошибка наблюдения", "err", err)
		case now := <-ticker.C:
			var quiet []string
			for path, at := range pending {
				if now.Sub(at) >= w.Debounce {
					quiet = append(quiet, path)
				}
			}
			sort.Strings(quiet)
			for _, path := range quiet {
				delete(pending, path)
				w.handle(ctx, log, path)
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, log *slog.Logger, path string) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	log.Info("новый файл", "файл", filepath.Base(path))
	if err := w.Handle(ctx, path); err != nil {
		log.Error("обработка файла", "файл", path, "err", err)
	}
}
