// Package ingest watches a drop directory for new video files and hands
// them to the orchestrator once their size stops changing.
package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// Handler receives a file once it has stabilized on disk.
type Handler func(path string)

// Watcher monitors the configured ingest directory.
type Watcher struct {
	dir        string
	extensions map[string]struct{}
	settle     time.Duration
	poll       time.Duration
	handler    Handler
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	wg      sync.WaitGroup
}

// NewWatcher builds a watcher from configuration. A missing ingest
// directory disables it; Start becomes a no-op.
func NewWatcher(cfg *config.Config, handler Handler, logger *slog.Logger) *Watcher {
	extensions := make(map[string]struct{}, len(cfg.Ingest.Extensions))
	for _, ext := range cfg.Ingest.Extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			extensions["."+ext] = struct{}{}
		}
	}
	settle := time.Duration(cfg.Ingest.StabilizeSeconds) * time.Second
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &Watcher{
		dir:        cfg.Paths.IngestDir,
		extensions: extensions,
		settle:     settle,
		poll:       500 * time.Millisecond,
		handler:    handler,
		logger:     logging.NewComponentLogger(logger, "ingest"),
		pending:    make(map[string]struct{}),
	}
}

// Start runs the watch loop until the context ends.
func (w *Watcher) Start(ctx context.Context) error {
	if w.dir == "" {
		w.logger.Debug("ingest directory not configured, watcher disabled")
		return nil
	}

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "ingest", "start", "create watcher", err)
	}
	if err := notifier.Add(w.dir); err != nil {
		notifier.Close()
		return services.Wrap(services.ErrConfiguration, "ingest", "start", "watch ingest directory", err)
	}
	w.logger.Info("watching for new files", slog.String("dir", w.dir))

	// Pick up files that were already sitting in the directory.
	if entries, err := os.ReadDir(w.dir); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				w.observe(ctx, filepath.Join(w.dir, entry.Name()))
			}
		}
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer notifier.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-notifier.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
					w.observe(ctx, event.Name)
				}
			case err, ok := <-notifier.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher error", logging.Error(err))
			}
		}
	}()
	return nil
}

// Wait blocks until all watch goroutines exit. Call after the context is
// cancelled.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) observe(ctx context.Context, path string) {
	if _, ok := w.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
		return
	}

	w.mu.Lock()
	if _, tracked := w.pending[path]; tracked {
		w.mu.Unlock()
		return
	}
	w.pending[path] = struct{}{}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.pending, path)
			w.mu.Unlock()
		}()
		if w.waitStable(ctx, path) {
			w.logger.Info("file stabilized", logging.String(logging.FieldFilename, filepath.Base(path)))
			w.handler(path)
		}
	}()
}

// waitStable polls the file size until it holds steady for the settle
// window. Returns false when the file disappears or the context ends.
func (w *Watcher) waitStable(ctx context.Context, path string) bool {
	var lastSize int64 = -1
	stableSince := time.Now()

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() != lastSize {
			lastSize = info.Size()
			stableSince = time.Now()
			continue
		}
		if time.Since(stableSince) >= w.settle {
			return true
		}
	}
}
