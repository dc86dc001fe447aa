package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
	"github.com/Raimguzhinov/curvequant/internal/quant"
)

// Entry: итог обработки одного изображения.
type Entry struct {
	Input   string
	Output  string
	Outcome quant.Outcome
	Elapsed time.Duration
}

const (
	markdownTopColors = 16
	markdownTitle     = "# Отчёт curvequant\n\n"
)

// AppendMarkdown дописывает разделы entries в файл отчёта path.
// Заголовок пишется только в новый или пустой файл.
func AppendMarkdown(path string, entries []Entry) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if info.Size() == 0 {
		if _, err := io.WriteString(f, markdownTitle); err != nil {
			f.Close()
			return err
		}
	}
	if err := WriteMarkdown(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteMarkdown пишет по разделу второго уровня на каждое изображение.
func WriteMarkdown(w io.Writer, entries []Entry) error {
	var b strings.Builder
	for _, e := range entries {
		o := e.Outcome
		fmt.Fprintf(&b, "## %s\n\n", e.Input)
		if e.Output != "" {
			fmt.Fprintf(&b, "- Результат: `%s`\n", e.Output)
		}
		if o.Image != nil {
			size := o.Image.Bounds().Size()
			fmt.Fprintf(&b, "- Размер: %d×%d\n", size.X, size.Y)
		}
		fmt.Fprintf(&b, "- Пикселей в гистограмме: %s\n", humanize.Comma(int64(o.Histogram.Total())))
		fmt.Fprintf(&b, "- Различных цветов: %s\n", humanize.Comma(int64(len(o.Histogram))))
		fmt.Fprintf(&b, "- Ошибка: %.5f (%s, %s)\n", o.Result.Error, o.Result.Strategy, o.Result.Metric)
		fmt.Fprintf(&b, "- Кандидатов: %s, seed %d\n", humanize.Comma(int64(o.Result.Candidates)), o.Result.Seed)
		if o.Cached {
			b.WriteString("- Кривая взята из журнала\n")
		}
		if e.Elapsed > 0 {
			fmt.Fprintf(&b, "- Время: %s\n", e.Elapsed.Round(time.Millisecond))
		}

		b.WriteString("\n```\n")
		b.WriteString(o.Result.Params.Describe())
		b.WriteString("\n```\n\n")

		top := o.Histogram.Top(markdownTopColors)
		if len(top) > 0 {
			b.WriteString("| Цвет | Пикселей | Доля |\n|---|---:|---:|\n")
			total := float64(o.Histogram.Total())
			for _, t := range top {
				fmt.Fprintf(&b, "| `%s` | %s | %.2f%% |\n",
					t.Color.Hex(), humanize.Comma(int64(t.Count)), 100*float64(t.Count)/total)
			}
			b.WriteString("\n")
		}

		if o.Remapper != nil {
			hexes := lo.Map(o.Remapper.Palette(), func(c colorspace.Color, _ int) string { return "`" + c.Hex() + "`" })
			fmt.Fprintf(&b, "Палитра кривой (%d цветов): %s\n\n", len(hexes), strings.Join(hexes, " "))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
