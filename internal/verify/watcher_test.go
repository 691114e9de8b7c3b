package verify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatchRerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "popup.html"), "<html></html>")

	reruns := make(chan struct{}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(zap.NewNop(), 50*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, dir, func(ctx context.Context) error {
			reruns <- struct{}{}

			return nil
		})
	}()

	// Give the watcher time to register before touching files.
	time.Sleep(200 * time.Millisecond)

	writeFile(t, filepath.Join(dir, "popup.html"), "<html><body></body></html>")

	select {
	case <-reruns:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a re-run after a file change")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}

func TestWatchDebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	reruns := make(chan struct{}, 64)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(zap.NewNop(), 300*time.Millisecond)

	go func() {
		_ = w.Watch(ctx, dir, func(ctx context.Context) error {
			reruns <- struct{}{}

			return nil
		})
	}()

	time.Sleep(200 * time.Millisecond)

	// A burst of writes inside the debounce window collapses to one run.
	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(dir, "manifest.json"), `{"manifest_version":3}`)
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-reruns:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a re-run after the burst settled")
	}

	select {
	case <-reruns:
		t.Fatal("burst should have collapsed into a single re-run")
	case <-time.After(600 * time.Millisecond):
	}
}

func TestWatchIgnoresOwnScreenshots(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "popup.html"), "<html></html>")

	screenshotDir := filepath.Join(dir, "verification")

	reruns := make(chan struct{}, 64)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(zap.NewNop(), 50*time.Millisecond, screenshotDir)

	go func() {
		_ = w.Watch(ctx, dir, func(ctx context.Context) error {
			// Each run writes its screenshot under the watch root, like the
			// real runner does.
			require.NoError(t, os.MkdirAll(screenshotDir, 0755))
			writeFile(t, filepath.Join(screenshotDir, "popup.png"), "png-bytes")

			reruns <- struct{}{}

			return nil
		})
	}()

	time.Sleep(200 * time.Millisecond)

	writeFile(t, filepath.Join(dir, "popup.html"), "<html><body>v2</body></html>")

	select {
	case <-reruns:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a re-run after the external change")
	}

	// The screenshot written by that run must not trigger another one.
	select {
	case <-reruns:
		t.Fatal("screenshot output fed back into the watch loop")
	case <-time.After(600 * time.Millisecond):
	}
}

func TestWatchMissingRoot(t *testing.T) {
	w := NewWatcher(zap.NewNop(), 50*time.Millisecond)

	err := w.Watch(context.Background(), filepath.Join(t.TempDir(), "gone"), func(ctx context.Context) error {
		return nil
	})
	assert.Error(t, err)
}

func TestWatchFileRootWatchesParent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "popup.html")
	writeFile(t, file, "<html></html>")

	reruns := make(chan struct{}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(zap.NewNop(), 50*time.Millisecond)

	go func() {
		_ = w.Watch(ctx, file, func(ctx context.Context) error {
			reruns <- struct{}{}

			return nil
		})
	}()

	time.Sleep(200 * time.Millisecond)

	writeFile(t, file, "<html><body>v2</body></html>")

	select {
	case <-reruns:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a re-run when the watched file changed")
	}
}
