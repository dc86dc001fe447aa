// Package report выводит гистограмму цветов, ход подбора и итоговые
// отчёты по обработанным изображениям.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"github.com/samber/lo"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
	"github.com/Raimguzhinov/curvequant/internal/quant"
)

// BarWidth: длина столбца самого частого цвета.
const BarWidth = 40

// Bar возвращает длину столбца для count при максимуме maxCount.
// Ненулевой цвет всегда получает хотя бы одну клетку.
func Bar(count, maxCount int) int {
	if maxCount <= 0 || count <= 0 {
		return 0
	}
	return max(1, BarWidth*count/maxCount)
}

// Swatch возвращает образец цвета для терминала с профилем profile.
// Для termenv.Ascii это просто пробелы.
func Swatch(profile termenv.Profile, c colorspace.Color) string {
	return profile.String("  ").Background(profile.Color(c.Hex())).String()
}

// WriteHistogram печатает до limit самых частых цветов: каналы, число
// пикселей и столбец. При limit <= 0 печатаются все цвета.
func WriteHistogram(w io.Writer, hist quant.Histogram, limit int, profile termenv.Profile) error {
	rows := hist.Top(limit)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(пусто)")
		return err
	}

	maxCount := lo.MaxBy(rows, func(a, b quant.Entry) bool { return a.Count > b.Count }).Count
	counts := lo.Map(rows, func(e quant.Entry, _ int) string { return humanize.Comma(int64(e.Count)) })
	width := len(lo.MaxBy(counts, func(a, b string) bool { return len(a) > len(b) }))

	for i, e := range rows {
		c := e.Color
		_, err := fmt.Fprintf(w, "%3d,%3d,%3d %s | %*s | %s\n",
			c.R, c.G, c.B, Swatch(profile, c), width, counts[i], strings.Repeat("█", Bar(e.Count, maxCount)))
		if err != nil {
			return err
		}
	}
	if rest := len(hist) - len(rows); rest > 0 {
		_, err := fmt.Fprintf(w, "… и ещё %s цветов\n", humanize.Comma(int64(rest)))
		return err
	}
	return nil
}
