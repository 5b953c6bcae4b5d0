package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"lectern/internal/catalog"
	"lectern/internal/config"
	"lectern/internal/learned"
	"lectern/internal/logging"
	"lectern/internal/manager"
	"lectern/internal/match"
	"lectern/internal/notifications"
	"lectern/internal/queue"
	"lectern/internal/results"
	"lectern/internal/sheetport"
	"lectern/internal/sheets"
	"lectern/internal/storage"
	"lectern/internal/uploader"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) buildLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stderr",
			filepath.Join(cfg.Paths.LogDir, "lectern.log"),
		},
	})
}

// acquireInstanceLock prevents two pipeline runs from sharing one state
// directory. The returned release func is safe to call once.
func acquireInstanceLock(cfg *config.Config) (func(), error) {
	lock := flock.New(filepath.Join(cfg.Paths.StateDir, "lectern.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another lectern instance is already running against %s", cfg.Paths.StateDir)
	}
	return func() { _ = lock.Unlock() }, nil
}

// pipeline bundles everything a full upload run needs.
type pipeline struct {
	manager *manager.Manager
	queue   *queue.Manager
	tracker *results.Tracker
	store   *learned.SQLiteStore
	matcher *match.Matcher
	catalog catalog.Service
}

func (p *pipeline) close() {
	if p.store != nil {
		_ = p.store.Close()
	}
}

// buildPipeline wires the production components behind the orchestrator.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	store, err := learned.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open learned store: %w", err)
	}
	applyPersistedSettings(ctx, store, cfg, logger)

	transport, err := storage.NewMinIOUploader(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("connect storage: %w", err)
	}

	tracker := results.NewTracker()
	q := queue.NewManager(logger)
	matcher := match.New(store, cfg.Matcher, logger)
	cat := catalog.NewHTTPClient(cfg, logger)
	up := uploader.New(q, tracker, transport, logger)
	sheetUpdater := sheets.NewUpdater(cfg, sheetport.NewXLSXPort(cfg, logger), tracker, logger)
	notifier := notifications.NewService(cfg)

	return &pipeline{
		manager: manager.New(cfg, q, matcher, up, sheetUpdater, cat, notifier, tracker, logger),
		queue:   q,
		tracker: tracker,
		store:   store,
		matcher: matcher,
		catalog: cat,
	}, nil
}

// applyPersistedSettings layers the operator's saved upload settings over the
// file-based configuration. Saved values win; command flags are applied after
// the pipeline is built and win over both.
func applyPersistedSettings(ctx context.Context, store learned.Store, cfg *config.Config, logger *slog.Logger) {
	readInt := func(key string) (int, bool) {
		raw, ok, err := store.LookupSetting(ctx, key)
		if err != nil {
			logger.Warn("failed to read persisted setting", "key", key, "error", err)
			return 0, false
		}
		if !ok {
			return 0, false
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			return 0, false
		}
		return value, true
	}
	if value, ok := readInt(learned.SettingMaxConcurrent); ok {
		cfg.Upload.MaxConcurrent = value
	}
	if value, ok := readInt(learned.SettingChunkSizeMiB); ok {
		cfg.Storage.ChunkSizeMiB = value
	}
	if value, ok := readInt(learned.SettingRetryAttempts); ok {
		cfg.Sheet.RetryAttempts = value
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
