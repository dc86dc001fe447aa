package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Options: глобальные флаги, общие для всех команд.
type Options struct {
	Config  string `short:"c" long:"config" description:"TOML-файл с настройками" value-name:"FILE"`
	Debug   bool   `long:"debug" description:"Подробный журнал (уровень debug)"`
	Version bool   `short:"v" long:"version" description:"Показать версию и выйти"`
	Help    bool   `short:"h" long:"help" description:"Показать справку с описанием алгоритма"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts Options
	parser := newParser(&opts)

	_, err := parser.ParseArgs(args)
	if opts.Help {
		fmt.Print(detailedHelp)
		return 0
	}
	if opts.Version {
		fmt.Println(version)
		return 0
	}
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrCommandRequired {
			fmt.Print(detailedHelp)
			return 1
		}
		fmt.Fprintln(os.Stderr, "Ошибка:", err)
		return 1
	}
	return 0
}

// newParser регистрирует команды. Каждая команда получает указатель на
// глобальные флаги и выполняется из Execute.
func newParser(opts *Options) *flags.Parser {
	parser := flags.NewParser(opts, flags.PassDoubleDash)
	parser.Name = "curvequant"

	parser.AddCommand("quantize",
		"Перекрасить изображения в палитру подобранной кривой",
		"Строит гистограмму каждого изображения, подбирает кривую палитры и перекрашивает все пиксели.",
		&quantizeCommand{global: opts})
	parser.AddCommand("fit",
		"Подобрать кривую и напечатать её параметры",
		"Строит гистограмму, печатает самые частые цвета и параметры лучшей кривой, не записывая изображение.",
		&fitCommand{global: opts})
	parser.AddCommand("watch",
		"Обрабатывать изображения, появляющиеся в каталоге",
		"Следит за каталогом и перекрашивает каждый новый файл изображения.",
		&watchCommand{global: opts})
	parser.AddCommand("history",
		"Показать последние записи журнала подборов",
		"Печатает последние подборы, сохранённые в журнале SQLite.",
		&historyCommand{global: opts})
	return parser
}

// newLogger настраивает tint поверх stderr; цвета только в терминале.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

// signalContext отменяется по Ctrl+C или SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
