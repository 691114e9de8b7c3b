package verify

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"extension-verifier/pkg/apperr"
	"extension-verifier/pkg/logg"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-runs a verification whenever files under the watched root
// change. Bursts of events (editors write several files) collapse into a
// single re-run through a debounce window.
type Watcher struct {
	logger   *zap.Logger
	debounce time.Duration
	ignore   []string
}

// NewWatcher builds a watcher. Paths in ignore are excluded from the watch
// set: a re-run writes its screenshot under the watch root, and reacting to
// our own output would loop the watcher forever.
func NewWatcher(logger *zap.Logger, debounce time.Duration, ignore ...string) *Watcher {
	return &Watcher{
		logger:   logger.With(zap.String(logg.Layer, "Watcher")),
		debounce: debounce,
		ignore:   absAll(ignore),
	}
}

func absAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			out = append(out, abs)
		} else {
			out = append(out, p)
		}
	}

	return out
}

func (w *Watcher) ignored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	for _, ig := range w.ignore {
		rel, err := filepath.Rel(ig, abs)
		if err != nil {
			continue
		}
		if rel == "." || !strings.HasPrefix(rel, "..") {
			return true
		}
	}

	return false
}

// Watch blocks until ctx is cancelled. rerun is invoked after each settled
// burst of changes; its error is logged, not fatal, so a broken intermediate
// state does not kill the loop.
func (w *Watcher) Watch(ctx context.Context, root string, rerun func(context.Context) error) error {
	const op = "Watch"
	logger := w.logger.With(zap.String(logg.Operation, op), zap.String(logg.Path, root))

	info, err := os.Stat(root)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason: "watch_root_missing",
			apperr.MetaStage:  apperr.StageWatch,
			apperr.MetaPath:   root,
		})
	}

	if !info.IsDir() {
		root = filepath.Dir(root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "fsnotify_init_failed",
			apperr.MetaStage:  apperr.StageWatch,
		})
	}
	defer fw.Close()

	if err := w.addTree(fw, root); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "fsnotify_add_failed",
			apperr.MetaStage:  apperr.StageWatch,
			apperr.MetaPath:   root,
		})
	}

	logger.Info("Watching for changes")

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) &&
				!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}

			if w.ignored(ev.Name) {
				continue
			}

			// New subdirectories must be watched too.
			if ev.Op.Has(fsnotify.Create) {
				if fi, statErr := os.Stat(ev.Name); statErr == nil && fi.IsDir() {
					if addErr := fw.Add(ev.Name); addErr != nil {
						logger.Warn("Failed to watch new directory", zap.Error(addErr))
					}
				}
			}

			logger.Debug("Change detected", zap.String(logg.Path, ev.Name), zap.String("op", ev.Op.String()))

			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error", zap.Error(watchErr))

		case <-timer.C:
			pending = false
			logger.Info("Changes settled, re-running verification")

			if runErr := rerun(ctx); runErr != nil {
				logger.Error("Re-run failed", zap.Error(runErr))
			}
		}
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if w.ignored(path) {
				return fs.SkipDir
			}

			return fw.Add(path)
		}

		return nil
	})
}
