package retention

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces bursts of write events from editors that save in
// multiple steps.
const reloadDebounce = 250 * time.Millisecond

// Watcher hot-reloads the retention policy file on change. Reload failures
// keep the previously installed policies.
type Watcher struct {
	path    string
	catalog *Catalog
	fw      *fsnotify.Watcher
	logger  *slog.Logger

	// Reloaded, when non-nil, is signalled after each successful reload.
	// Used by tests.
	Reloaded chan struct{}
}

// NewWatcher creates a policy file watcher. The parent directory is watched
// rather than the file itself, so atomic rename-into-place saves are seen.
func NewWatcher(path string, catalog *Catalog) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}
	return &Watcher{
		path:    path,
		catalog: catalog,
		fw:      fw,
		logger:  slog.Default().With("component", "retention-watcher"),
	}, nil
}

// Run watches until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			w.reload(ctx)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	policies, err := LoadPolicyFile(w.path)
	if err != nil {
		w.logger.Error("policy reload failed, keeping current policies", "error", err)
		return
	}
	if err := w.catalog.InstallPolicies(ctx, policies); err != nil {
		w.logger.Error("policy install failed, keeping current policies", "error", err)
		return
	}
	w.logger.Info("retention policies reloaded", "path", w.path, "count", len(policies))
	if w.Reloaded != nil {
		select {
		case w.Reloaded <- struct{}{}:
		default:
		}
	}
}

// Close stops the underlying file watcher.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
