package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
)

const progressWidth = 30

// ProgressBar печатает ход этапов одной строкой, перерисовывая её через
// \r. Строка обновляется, только когда меняется целый процент.
// Реализует progress.Reporter.
type ProgressBar struct {
	mu      sync.Mutex
	out     *termenv.Output
	stage   string
	percent int
}

// NewProgressBar создаёт индикатор, пишущий в w.
func NewProgressBar(w io.Writer, profile termenv.Profile) *ProgressBar {
	return &ProgressBar{out: termenv.NewOutput(w, termenv.WithProfile(profile)), percent: -1}
}

func (p *ProgressBar) Report(stage string, done, total int) {
	if total <= 0 {
		return
	}
	percent := 100 * min(done, total) / total

	p.mu.Lock()
	defer p.mu.Unlock()
	if stage == p.stage && percent <= p.percent {
		return
	}
	if stage != p.stage && p.stage != "" {
		fmt.Fprintln(p.out)
	}
	p.stage, p.percent = stage, percent

	filled := progressWidth * percent / 100
	bar := p.out.String(strings.Repeat("━", filled)).Foreground(p.out.Color("2")).String() +
		strings.Repeat("─", progressWidth-filled)
	fmt.Fprintf(p.out, "\r%-6s %s %3d%% (%s/%s)", stage, bar, percent,
		humanize.Comma(int64(done)), humanize.Comma(int64(total)))
}

// Finish завершает текущую строку.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stage != "" {
		fmt.Fprintln(p.out)
	}
	p.stage, p.percent = "", -1
}
