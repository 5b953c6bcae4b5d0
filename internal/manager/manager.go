// Package manager orchestrates the upload pipeline: file intake, library
// matching, the bounded-concurrency scheduling loop, and batch settlement.
package manager

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"lectern/internal/catalog"
	"lectern/internal/classify"
	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/match"
	"lectern/internal/notifications"
	"lectern/internal/parse"
	"lectern/internal/queue"
	"lectern/internal/results"
	"lectern/internal/services"
	"lectern/internal/sheets"
	"lectern/internal/uploader"
)

// DurationProber reports a video's duration in seconds. Implementations
// return 0 when the duration cannot be determined.
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Manager owns the session's upload pipeline.
type Manager struct {
	cfg      *config.Config
	queue    *queue.Manager
	matcher  *match.Matcher
	uploader *uploader.Uploader
	sheets   *sheets.Updater
	catalog  catalog.Service
	notifier notifications.Service
	tracker  *results.Tracker
	logger   *slog.Logger
	prober   DurationProber

	mu         sync.Mutex
	scheduling bool
	rerun      bool
	batchID    string
	batchStart time.Time
	active     bool
	signaled   bool
	onComplete func()

	runCtx context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
}

// New wires the orchestrator. Start must run before files are added.
func New(
	cfg *config.Config,
	q *queue.Manager,
	matcher *match.Matcher,
	up *uploader.Uploader,
	sheetUpdater *sheets.Updater,
	cat catalog.Service,
	notifier notifications.Service,
	tracker *results.Tracker,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		cfg:      cfg,
		queue:    q,
		matcher:  matcher,
		uploader: up,
		sheets:   sheetUpdater,
		catalog:  cat,
		notifier: notifier,
		tracker:  tracker,
		logger:   logging.NewComponentLogger(logger, "manager"),
	}
}

// Start prepares the run context and hooks batch settlement.
func (m *Manager) Start(ctx context.Context) {
	m.runCtx, m.stop = context.WithCancel(ctx)
	m.sheets.OnBatchComplete(m.onSheetsSettled)
}

// Stop cancels the run context and waits for in-flight work to unwind.
func (m *Manager) Stop() {
	if m.stop != nil {
		m.stop()
	}
	m.wg.Wait()
	m.sheets.Wait()
}

// OnBatchComplete registers a callback fired once per settled batch,
// after notifications go out.
func (m *Manager) OnBatchComplete(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onComplete = fn
}

// SetDurationProber installs an optional duration probe consulted once per
// item before its transfer starts.
func (m *Manager) SetDurationProber(p DurationProber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prober = p
}

// Queue exposes the session queue for display and interaction.
func (m *Manager) Queue() *queue.Manager { return m.queue }

// Results exposes the session's upload results.
func (m *Manager) Results() *results.Tracker { return m.tracker }

// AddFiles runs intake for a set of file paths: parse, classify, match,
// then enqueue or park for manual selection. Returns how many items went
// to each destination.
func (m *Manager) AddFiles(ctx context.Context, paths []string) (enqueued, unresolved int, err error) {
	if len(paths) == 0 {
		return 0, 0, nil
	}

	libraries, err := m.catalog.ListLibraries(ctx)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrExternalTool, "manager", "add-files", "list libraries", err)
	}
	candidates := make([]match.Candidate, 0, len(libraries))
	for _, lib := range libraries {
		candidates = append(candidates, match.Candidate{ID: lib.ID, Name: lib.Name})
	}

	m.beginBatchIfIdle(len(paths))

	year := m.cfg.Upload.DefaultYear
	for _, path := range paths {
		info, statErr := os.Stat(path)
		if statErr != nil {
			m.logger.Warn("skipping unreadable file",
				logging.String(logging.FieldFilename, path),
				logging.Error(statErr))
			continue
		}

		filename := filepath.Base(path)
		parsed := parse.Parse(filename)
		decision := classify.Classify(parsed, year)
		result := m.matcher.Match(ctx, parsed, filename, candidates)

		meta := queue.Metadata{
			CollectionName:   decision.Name,
			CollectionReason: decision.Reason,
			Year:             year,
			Confidence:       result.Confidence,
		}
		item := queue.NewItem(queue.FileRef{Path: path, SizeBytes: info.Size()}, filename, parsed, meta)

		if result.Library == nil || result.NeedsManual {
			item.Meta.SuggestedLibraries = result.Alternatives
			if len(result.Alternatives) > 0 {
				item.Meta.SuggestedLibraryName = result.Alternatives[0].Name
			}
			m.queue.HoldUnresolved(item)
			unresolved++
			m.notify(func(ctx context.Context) error {
				return m.notifier.NotifyManualSelectionNeeded(ctx, filename, item.Meta.SuggestedLibraryName)
			})
			continue
		}

		item.Meta.LibraryID = result.Library.ID
		item.Meta.LibraryName = result.Library.Name
		m.queue.Enqueue(item)
		enqueued++
	}

	m.logger.Info("files added",
		logging.String(logging.FieldBatchID, m.currentBatchID()),
		logging.Int("enqueued", enqueued),
		logging.Int("unresolved", unresolved))
	m.schedule()
	return enqueued, unresolved, nil
}

// ResolveManually applies the user's library choice to an unresolved item,
// teaches the matcher, and resumes scheduling.
func (m *Manager) ResolveManually(ctx context.Context, itemID, libraryID, libraryName string) error {
	item, err := m.queue.ResolveManually(itemID, libraryID, libraryName)
	if err != nil {
		return err
	}
	if err := m.matcher.LearnManualSelection(ctx, item.Filename, libraryID, libraryName); err != nil {
		m.logger.Warn("manual selection not persisted",
			logging.String(logging.FieldFilename, item.Filename),
			logging.Error(err))
	}
	m.schedule()
	return nil
}

// PauseItem parks one item; a transfer in flight is aborted.
func (m *Manager) PauseItem(itemID string) error {
	return m.queue.Pause(itemID)
}

// ResumeItem puts a paused item back in the pending pool and reschedules.
func (m *Manager) ResumeItem(itemID string) error {
	if err := m.queue.Resume(itemID); err != nil {
		return err
	}
	m.schedule()
	return nil
}

// CancelItem drops an item entirely. When a transfer was in flight the
// caller is told so partial remote data can be reviewed.
func (m *Manager) CancelItem(itemID string) (bool, error) {
	wasProcessing, err := m.queue.Cancel(itemID)
	if err != nil {
		return false, err
	}
	m.schedule()
	return wasProcessing, nil
}

// ToggleGlobalPause flips the coarse pause switch and reschedules when
// work resumes.
func (m *Manager) ToggleGlobalPause() bool {
	paused := m.queue.ToggleGlobalPause()
	if !paused {
		m.schedule()
	} else {
		m.maybeFinishUploads()
	}
	return paused
}

// RetryErrored re-enqueues every errored item for another attempt and
// re-opens the sheets batch so the settled batch can fire again once the
// retries finish.
func (m *Manager) RetryErrored() int {
	retried := 0
	for _, item := range m.queue.Items() {
		if item.Status != queue.StatusError {
			continue
		}
		if err := m.queue.ReEnqueue(item.ID); err == nil {
			retried++
		}
	}
	if retried > 0 {
		m.mu.Lock()
		m.active = true
		m.signaled = false
		m.mu.Unlock()
		m.sheets.Reopen()
		m.schedule()
	}
	return retried
}

// schedule is the reentrancy-guarded pull loop. It starts uploads while
// capacity allows and re-runs itself when triggered concurrently.
func (m *Manager) schedule() {
	m.mu.Lock()
	if m.scheduling {
		m.rerun = true
		m.mu.Unlock()
		return
	}
	m.scheduling = true
	m.mu.Unlock()

	for {
		m.fillCapacity()

		m.mu.Lock()
		if !m.rerun {
			m.scheduling = false
			m.mu.Unlock()
			break
		}
		m.rerun = false
		m.mu.Unlock()
	}
	m.maybeFinishUploads()
}

func (m *Manager) fillCapacity() {
	if m.runCtx == nil || m.runCtx.Err() != nil {
		return
	}
	maxConcurrent := m.cfg.Upload.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	for {
		if m.queue.GlobalPause() {
			return
		}
		if m.queue.Counts().Processing >= maxConcurrent {
			return
		}
		item, ok := m.queue.NextPending()
		if !ok {
			return
		}

		attemptCtx, abort := context.WithCancelCause(m.runCtx)
		if err := m.queue.MarkProcessing(item.ID, abort); err != nil {
			abort(nil)
			continue
		}

		m.wg.Add(1)
		go func(item queue.Item, ctx context.Context) {
			defer m.wg.Done()
			m.runItem(ctx, item)
			m.schedule()
		}(item, attemptCtx)
	}
}

// runItem resolves the destination collection and executes the transfer.
func (m *Manager) runItem(ctx context.Context, item queue.Item) {
	m.mu.Lock()
	prober := m.prober
	m.mu.Unlock()
	if prober != nil && item.Meta.VideoDurationSeconds == 0 {
		seconds, err := prober.ProbeDuration(ctx, item.File.Path)
		if err != nil {
			m.logger.Warn("duration probe failed",
				logging.String(logging.FieldFilename, item.Filename),
				logging.Error(err))
		} else if seconds > 0 {
			m.queue.SetDuration(item.ID, seconds)
			item.Meta.VideoDurationSeconds = seconds
		}
	}

	collection, err := m.catalog.EnsureCollection(ctx, item.Meta.LibraryID, item.Meta.CollectionName)
	if err != nil {
		if services.IsUserAbort(context.Cause(ctx)) {
			m.queue.MarkPaused(item.ID)
			return
		}
		m.queue.MarkError(item.ID, err.Error())
		m.tracker.Upsert(results.Record{
			Filename:       item.Filename,
			UploadStatus:   results.UploadError,
			LibraryID:      item.Meta.LibraryID,
			LibraryName:    item.Meta.LibraryName,
			CollectionName: item.Meta.CollectionName,
			ErrorDetails:   err.Error(),
		})
		m.notify(func(ctx context.Context) error {
			return m.notifier.NotifyUploadError(ctx, item.Filename, err)
		})
		return
	}

	err = m.uploader.Upload(ctx, item, collection.ID, func(filename, remoteID, libraryID string) {
		m.sheets.Schedule(filename, remoteID, libraryID, item.Meta.VideoDurationSeconds)
	})
	if err != nil && !services.IsUserAbort(err) {
		m.notify(func(ctx context.Context) error {
			return m.notifier.NotifyUploadError(ctx, item.Filename, err)
		})
	}
}

// maybeFinishUploads sends the explicit uploads-finished signal once every
// enqueued item reached a terminal state. Unresolved and paused items keep
// the batch open; it never settles past work the user still owes a
// decision on.
func (m *Manager) maybeFinishUploads() {
	m.mu.Lock()
	if !m.active || m.signaled {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	counts := m.queue.Counts()
	started := counts.Completed+counts.Error > 0
	open := counts.Pending+counts.Processing+counts.Paused+counts.Unresolved > 0
	if !started || open {
		return
	}

	m.mu.Lock()
	if m.signaled {
		m.mu.Unlock()
		return
	}
	m.signaled = true
	m.mu.Unlock()

	m.logger.Info("uploads finished",
		logging.String(logging.FieldBatchID, m.currentBatchID()))
	m.sheets.UploadsFinished()
}

func (m *Manager) onSheetsSettled() {
	m.mu.Lock()
	m.active = false
	duration := time.Since(m.batchStart)
	fn := m.onComplete
	m.mu.Unlock()

	stats := m.tracker.Stats()
	m.logger.Info("batch complete",
		logging.String(logging.FieldBatchID, m.currentBatchID()),
		logging.Int("succeeded", stats.Succeeded),
		logging.Int("failed", stats.Failed),
		logging.Duration("duration", duration))
	m.notify(func(ctx context.Context) error {
		return m.notifier.NotifyBatchCompleted(ctx, stats.Succeeded, stats.Failed, duration)
	})
	if fn != nil {
		fn()
	}
}

func (m *Manager) beginBatchIfIdle(count int) {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return
	}
	m.active = true
	m.signaled = false
	m.batchID = uuid.NewString()
	m.batchStart = time.Now()
	m.mu.Unlock()

	m.sheets.Reset()
	m.logger.Info("batch started",
		logging.String(logging.FieldBatchID, m.currentBatchID()),
		logging.Int("files", count))
	m.notify(func(ctx context.Context) error {
		return m.notifier.NotifyBatchStarted(ctx, count)
	})
}

func (m *Manager) currentBatchID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchID
}

// notify sends a notification without blocking the pipeline. Failures are
// logged and otherwise ignored.
func (m *Manager) notify(send func(context.Context) error) {
	ctx := m.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := send(notifyCtx); err != nil {
			m.logger.Warn("notification failed", logging.Error(err))
		}
	}()
}
