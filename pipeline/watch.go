package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cyberprophet/sentiment-analysis/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// WatchStats 监听统计
type WatchStats struct {
	Runs     int64     `json:"runs"`
	Failures int64     `json:"failures"`
	LastRun  time.Time `json:"last_run"`
}

// DatasetWatcher re-runs a job whenever the dataset file changes. Bursts of
// events within the debounce window trigger a single run.
type DatasetWatcher struct {
	path     string
	debounce time.Duration
	logger   *zap.Logger

	statsLock sync.RWMutex
	stats     WatchStats
}

func NewDatasetWatcher(path string, debounce time.Duration, logger *zap.Logger) *DatasetWatcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled. A failing job is logged and the watch
// goes on; only watcher errors end it.
func (w *DatasetWatcher) Run(ctx context.Context, job func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create file watcher")
	}
	defer watcher.Close()

	// Editors often replace the file, so the directory is watched instead.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(w.path))
	}
	w.logger.Info("Watching dataset", zap.String("path", w.path), zap.Duration("debounce", w.debounce))

	timer := time.NewTimer(w.debounce)
	stopTimer(timer)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.logger.Debug("Dataset changed", zap.String("op", event.Op.String()))
			stopTimer(timer)
			timer.Reset(w.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "file watcher")
		case <-timer.C:
			w.runJob(ctx, job)
		}
	}
}

// stopTimer stops t and drains a tick that fired but was not received, so a
// following Reset cannot be answered by the stale tick.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (w *DatasetWatcher) runJob(ctx context.Context, job func(context.Context) error) {
	err := job(ctx)

	w.statsLock.Lock()
	w.stats.Runs++
	w.stats.LastRun = time.Now()
	if err != nil {
		w.stats.Failures++
	}
	w.statsLock.Unlock()

	if err != nil {
		w.logger.Error("Dataset run failed", zap.String("path", w.path), logging.ErrorField(err))
	}
}

func (w *DatasetWatcher) GetStats() WatchStats {
	w.statsLock.RLock()
	defer w.statsLock.RUnlock()

	return w.stats
}
