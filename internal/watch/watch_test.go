package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherHandlesNewFilesOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen []string
	)
	started := make(chan struct{})
	w := &Watcher{
		Dir:      dir,
		Debounce: 150 * time.Millisecond,
		Match:    func(p string) bool { return strings.HasSuffix(p, ".png") },
		Handle: func(_ context.Context, path string) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, filepath.Base(path))
			return nil
		},
	}

	done := make(chan error, 1)
	go func() {
		close(started)
		done <- w.Run(ctx)
	}()
	<-started
	// Run должен успеть подписаться на каталог
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(dir, "a.png")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", i+1)), 0o644))
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, 3*time.Second, 20*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"a.png"}, seen)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run не завершился после отмены")
	}
}

func TestWatcherMissingDir(t *testing.T) {
	t.Parallel()

	w := &Watcher{Dir: filepath.Join(t.TempDir(), "absent"), Handle: func(context.Context, string) error { return nil }}
	assert.Error(t, w.Run(context.Background()))
}
