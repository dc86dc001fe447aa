package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu      sync.Mutex
	reports []int
	stage   string
	total   int
}

func (r *recorder) Report(stage string, done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stage = stage
	r.total = total
	r.reports = append(r.reports, done)
}

func TestCounterReportsThroughContext(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	ctx := WithReporter(context.Background(), rec)
	c := Start(ctx, "fit", 100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(10)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, c.Done())
	assert.Equal(t, "fit", rec.stage)
	assert.Equal(t, 100, rec.total)
	assert.Len(t, rec.reports, 11)
	assert.Equal(t, 0, rec.reports[0])
	assert.Contains(t, rec.reports, 100)
}

func TestCounterWithoutReporter(t *testing.T) {
	t.Parallel()

	assert.Nil(t, FromContext(context.Background()))
	c := Start(context.Background(), "remap", 3)
	c.Add(3)
	assert.Equal(t, 3, c.Done())
}

func TestReporterFunc(t *testing.T) {
	t.Parallel()

	var got int
	ctx := WithReporter(context.Background(), ReporterFunc(func(_ string, done, _ int) { got = done }))
	Start(ctx, "x", 5).Add(2)
	assert.Equal(t, 2, got)
}
