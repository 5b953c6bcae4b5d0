// Package sheets writes upload outcomes back into the tracking
// spreadsheet. Updates are fire-and-forget per file; the updater settles a
// batch against an expected-count watermark once uploads are declared
// finished.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/parse"
	"lectern/internal/results"
	"lectern/internal/services"
	"lectern/internal/sheetport"
)

// Updater schedules one spreadsheet write per successfully uploaded file.
type Updater struct {
	port    sheetport.Port
	tracker *results.Tracker
	logger  *slog.Logger

	attempts int
	backoff  time.Duration

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	inFlight    map[string]struct{}
	settled     map[string]struct{}
	expected    int
	finished    bool
	fired       bool
	onComplete  func()
	outstanding sync.WaitGroup
}

// NewUpdater builds an updater bound to one batch's lifetime. Reset starts
// the next batch.
func NewUpdater(cfg *config.Config, port sheetport.Port, tracker *results.Tracker, logger *slog.Logger) *Updater {
	attempts := cfg.Sheet.RetryAttempts
	if attempts < 1 {
		attempts = 3
	}
	backoff := time.Duration(cfg.Sheet.RetryBackoff) * time.Second
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Updater{
		port:     port,
		tracker:  tracker,
		logger:   logging.NewComponentLogger(logger, "sheets"),
		attempts: attempts,
		backoff:  backoff,
		ctx:      ctx,
		cancel:   cancel,
		inFlight: make(map[string]struct{}),
		settled:  make(map[string]struct{}),
	}
}

// OnBatchComplete registers the callback fired exactly once per batch when
// uploads are finished and every expected write has settled.
func (u *Updater) OnBatchComplete(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onComplete = fn
}

// Schedule queues one file's spreadsheet write. A duplicate request for a
// filename already in flight is dropped. The watermark only ever grows;
// re-uploading a settled file reopens it without counting it twice.
func (u *Updater) Schedule(filename, videoID, libraryID string, durationSeconds float64) {
	u.mu.Lock()
	if _, dup := u.inFlight[filename]; dup {
		u.mu.Unlock()
		u.logger.Debug("duplicate sheet update dropped",
			logging.String(logging.FieldFilename, filename))
		return
	}
	u.inFlight[filename] = struct{}{}
	if _, seen := u.settled[filename]; seen {
		delete(u.settled, filename)
	} else {
		u.expected++
	}
	ctx := u.ctx
	u.outstanding.Add(1)
	u.mu.Unlock()

	u.tracker.SetSheetStatus(filename, results.SheetProcessing, "")

	go func() {
		defer u.outstanding.Done()
		u.run(ctx, filename, videoID, libraryID, durationSeconds)
	}()
}

// UploadsFinished is the explicit external signal that no more uploads
// will be scheduled for this batch.
func (u *Updater) UploadsFinished() {
	u.mu.Lock()
	u.finished = true
	u.mu.Unlock()
	u.maybeComplete()
}

// Reopen re-arms a settled batch for another round of uploads. Settled
// work is kept; re-uploaded files reopen through Schedule and the batch
// callback fires again once the new round settles.
func (u *Updater) Reopen() {
	u.mu.Lock()
	u.finished = false
	u.fired = false
	u.mu.Unlock()
}

// Reset cancels outstanding work and clears the batch state. Must run
// before a new batch so the watermark cannot leak across batches.
func (u *Updater) Reset() {
	u.mu.Lock()
	u.cancel()
	u.ctx, u.cancel = context.WithCancel(context.Background())
	u.inFlight = make(map[string]struct{})
	u.settled = make(map[string]struct{})
	u.expected = 0
	u.finished = false
	u.fired = false
	u.mu.Unlock()
}

// Wait blocks until no update workers are outstanding. Test helper.
func (u *Updater) Wait() {
	u.outstanding.Wait()
}

func (u *Updater) run(ctx context.Context, filename, videoID, libraryID string, durationSeconds float64) {
	row := sheetport.Row{
		MatchKey:  matchKey(filename),
		EmbedCode: EmbedSnippet(libraryID, videoID),
	}
	// Duration is never written for question clips, even when known.
	if !parse.HasQuestionMarker(filename) && durationSeconds > 0 {
		row.DurationMinutes = math.Round(durationSeconds/60*10) / 10
		row.HasDuration = true
	}

	outcome, detail := u.updateWithRetry(ctx, row)
	u.tracker.SetSheetStatus(filename, sheetStatus(outcome), detail)
	u.logger.Info("sheet update settled",
		logging.String(logging.FieldFilename, filename),
		slog.String("outcome", string(outcome)))

	u.mu.Lock()
	delete(u.inFlight, filename)
	u.settled[filename] = struct{}{}
	u.mu.Unlock()
	u.maybeComplete()
}

func (u *Updater) updateWithRetry(ctx context.Context, row sheetport.Row) (sheetport.Outcome, string) {
	var lastErr error
	for attempt := 0; attempt < u.attempts; attempt++ {
		if attempt > 0 {
			delay := u.backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return sheetport.OutcomeError, "update cancelled"
			case <-time.After(delay):
			}
		}

		resp, err := u.port.UpdateRows(ctx, []sheetport.Row{row})
		if err != nil {
			lastErr = err
			if !services.Retryable(err) || ctx.Err() != nil {
				break
			}
			continue
		}
		return classify(resp, row.MatchKey)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no attempts made")
	}
	return sheetport.OutcomeError, lastErr.Error()
}

func (u *Updater) maybeComplete() {
	u.mu.Lock()
	// A batch with zero successful uploads still settles: the finished
	// signal only arrives for batches the manager actually started.
	done := u.finished && !u.fired &&
		len(u.settled) >= u.expected && len(u.inFlight) == 0
	var fn func()
	if done {
		u.fired = true
		fn = u.onComplete
	}
	u.mu.Unlock()

	if done {
		u.logger.Info("batch sheet writes settled")
		if fn != nil {
			fn()
		}
	}
}

// classify turns a transport response into exactly one outcome. Per-row
// results win; aggregate counters are accepted only when unambiguous; the
// transport's own success flag is never trusted on its own.
func classify(resp sheetport.Response, matchKey string) (sheetport.Outcome, string) {
	for _, row := range resp.Rows {
		if row.MatchKey == matchKey {
			return row.Outcome, row.Detail
		}
	}
	if len(resp.Rows) == 1 {
		return resp.Rows[0].Outcome, resp.Rows[0].Detail
	}

	if resp.HasAggregate {
		agg := resp.Aggregate
		switch {
		case agg.Updated == 1 && agg.NotFound == 0 && agg.Skipped == 0 && agg.Errors == 0:
			return sheetport.OutcomeUpdated, ""
		case agg.NotFound == 1 && agg.Updated == 0 && agg.Skipped == 0 && agg.Errors == 0:
			return sheetport.OutcomeNotFound, "row not found in sheet"
		case agg.Skipped == 1 && agg.Updated == 0 && agg.NotFound == 0 && agg.Errors == 0:
			return sheetport.OutcomeSkipped, ""
		}
		return sheetport.OutcomeError, "ambiguous aggregate counters"
	}
	return sheetport.OutcomeError, "transport returned no usable result"
}

func sheetStatus(outcome sheetport.Outcome) results.SheetStatus {
	switch outcome {
	case sheetport.OutcomeUpdated:
		return results.SheetUpdated
	case sheetport.OutcomeNotFound:
		return results.SheetNotFound
	case sheetport.OutcomeSkipped:
		return results.SheetSkipped
	default:
		return results.SheetError
	}
}

// EmbedSnippet builds the deterministic iframe snippet for a video.
func EmbedSnippet(libraryID, videoID string) string {
	src := fmt.Sprintf("https://iframe.mediadelivery.net/embed/%s/%s?autoplay=false", libraryID, videoID)
	return fmt.Sprintf(`<div style="position:relative;padding-top:56.25%%;"><iframe src=%q loading="lazy" style="border:0;position:absolute;top:0;height:100%%;width:100%%;" allowfullscreen="true"></iframe></div>`, src)
}

// matchKey is the sheet lookup value: the filename without its extension.
// Question markers stay in the key because question clips have their own
// rows.
func matchKey(filename string) string {
	name := strings.TrimSpace(filename)
	if idx := strings.LastIndex(name, "."); idx > 0 {
		ext := name[idx+1:]
		if len(ext) >= 2 && len(ext) <= 5 {
			name = name[:idx]
		}
	}
	return name
}
