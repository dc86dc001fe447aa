// Package progress передаёт через context.Context наблюдателя за ходом
// долгих операций (подбор кривой, перекраска пикселей).
package progress

import (
	"context"
	"sync/atomic"
)

// Reporter получает отчёты о ходе этапа. Вызывается из нескольких
// горутин одновременно и должен быть потокобезопасным.
type Reporter interface {
	Report(stage string, done, total int)
}

// ReporterFunc позволяет использовать функцию как Reporter.
type ReporterFunc func(stage string, done, total int)

func (f ReporterFunc) Report(stage string, done, total int) {
	f(stage, done, total)
}

type reporterKey struct{}

// WithReporter возвращает контекст, несущий r.
func WithReporter(ctx context.Context, r Reporter) context.Context {
	return context.WithValue(ctx, reporterKey{}, r)
}

// FromContext возвращает Reporter из контекста или nil.
func FromContext(ctx context.Context) Reporter {
	r, _ := ctx.Value(reporterKey{}).(Reporter)
	return r
}

// Counter: монотонный счётчик выполненной работы одного этапа.
type Counter struct {
	stage    string
	total    int
	done     atomic.Int64
	reporter Reporter
}

// Start создаёт счётчик этапа stage и сразу сообщает о нулевом прогрессе.
func Start(ctx context.Context, stage string, total int) *Counter {
	c := &Counter{stage: stage, total: total, reporter: FromContext(ctx)}
	if c.reporter != nil {
		c.reporter.Report(stage, 0, total)
	}
	return c
}

// Add увеличивает счётчик на n и сообщает новое значение.
func (c *Counter) Add(n int) {
	done := c.done.Add(int64(n))
	if c.reporter != nil {
		c.reporter.Report(c.stage, int(done), c.total)
	}
}

// Done возвращает текущее значение счётчика.
func (c *Counter) Done() int {
	return int(c.done.Load())
}
