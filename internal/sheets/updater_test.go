package sheets_test

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lectern/internal/logging"
	"lectern/internal/results"
	"lectern/internal/services"
	"lectern/internal/sheetport"
	"lectern/internal/sheets"
	"lectern/internal/testsupport"
)

func newUpdater(t *testing.T, port sheetport.Port) (*sheets.Updater, *results.Tracker) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Sheet.RetryAttempts = 2
	cfg.Sheet.RetryBackoff = 0
	tracker := results.NewTracker()
	return sheets.NewUpdater(cfg, port, tracker, logging.NewNop()), tracker
}

func seed(tracker *results.Tracker, filename string) {
	tracker.Upsert(results.Record{Filename: filename, UploadStatus: results.UploadSuccess})
}

func TestScheduleWritesEmbedAndDuration(t *testing.T) {
	port := testsupport.NewFakeSheetPort()
	updater, tracker := newUpdater(t, port)
	seed(tracker, "S1 AR T1 P0046 Ahmed.mp4")

	updater.Schedule("S1 AR T1 P0046 Ahmed.mp4", "vid-1", "lib-1", 750)
	updater.Wait()

	calls := port.Calls()
	if len(calls) != 1 || len(calls[0]) != 1 {
		t.Fatalf("port calls: %v", calls)
	}
	row := calls[0][0]
	if row.MatchKey != "S1 AR T1 P0046 Ahmed" {
		t.Fatalf("match key = %q", row.MatchKey)
	}
	if !strings.Contains(row.EmbedCode, "lib-1/vid-1") {
		t.Fatalf("embed snippet = %q", row.EmbedCode)
	}
	if !row.HasDuration || row.DurationMinutes != 12.5 {
		t.Fatalf("duration = %v has=%v", row.DurationMinutes, row.HasDuration)
	}
	rec, _ := tracker.Get("S1 AR T1 P0046 Ahmed.mp4")
	if rec.SheetStatus != results.SheetUpdated {
		t.Fatalf("sheet status = %s", rec.SheetStatus)
	}
}

func TestQuestionVideosNeverGetDuration(t *testing.T) {
	port := testsupport.NewFakeSheetPort()
	updater, tracker := newUpdater(t, port)
	seed(tracker, "S1 AR T1 P0046 Ahmed Q3.mp4")

	updater.Schedule("S1 AR T1 P0046 Ahmed Q3.mp4", "vid-2", "lib-1", 95)
	updater.Wait()

	row := port.Calls()[0][0]
	if row.HasDuration {
		t.Fatalf("question clip got a duration: %v", row.DurationMinutes)
	}
}

func TestDuplicateInFlightRequestDropped(t *testing.T) {
	release := make(chan struct{})
	port := testsupport.NewFakeSheetPort()
	port.Respond = func(rows []sheetport.Row) (sheetport.Response, error) {
		<-release
		return sheetport.Response{
			Rows:         []sheetport.RowResult{{MatchKey: rows[0].MatchKey, Outcome: sheetport.OutcomeUpdated}},
			HasAggregate: true,
			Aggregate:    sheetport.Aggregate{Updated: 1},
		}, nil
	}
	updater, tracker := newUpdater(t, port)
	seed(tracker, "a.mp4")

	updater.Schedule("a.mp4", "vid-1", "lib-1", 0)
	updater.Schedule("a.mp4", "vid-1", "lib-1", 0)
	close(release)
	updater.Wait()

	if got := len(port.Calls()); got != 1 {
		t.Fatalf("port called %d times, want 1", got)
	}
}

func TestImmediateProcessingStatus(t *testing.T) {
	release := make(chan struct{})
	port := testsupport.NewFakeSheetPort()
	port.Respond = func(rows []sheetport.Row) (sheetport.Response, error) {
		<-release
		return sheetport.Response{HasAggregate: true, Aggregate: sheetport.Aggregate{Updated: 1}}, nil
	}
	updater, tracker := newUpdater(t, port)
	seed(tracker, "a.mp4")

	updater.Schedule("a.mp4", "vid-1", "lib-1", 0)
	rec, _ := tracker.Get("a.mp4")
	if rec.SheetStatus != results.SheetProcessing {
		t.Fatalf("status before settle = %s, want processing", rec.SheetStatus)
	}
	close(release)
	updater.Wait()
}

func TestAmbiguousAggregateDefaultsToError(t *testing.T) {
	port := testsupport.NewFakeSheetPort()
	port.Respond = func(rows []sheetport.Row) (sheetport.Response, error) {
		// Transport claims overall success but the counters disagree.
		return sheetport.Response{
			Success:      true,
			HasAggregate: true,
			Aggregate:    sheetport.Aggregate{Updated: 1, NotFound: 1},
		}, nil
	}
	updater, tracker := newUpdater(t, port)
	seed(tracker, "a.mp4")

	updater.Schedule("a.mp4", "vid-1", "lib-1", 0)
	updater.Wait()

	rec, _ := tracker.Get("a.mp4")
	if rec.SheetStatus != results.SheetError {
		t.Fatalf("status = %s, want error despite success flag", rec.SheetStatus)
	}
}

func TestPerRowResultBeatsAggregate(t *testing.T) {
	port := testsupport.NewFakeSheetPort()
	port.Respond = func(rows []sheetport.Row) (sheetport.Response, error) {
		return sheetport.Response{
			Success: false,
			Rows: []sheetport.RowResult{
				{MatchKey: rows[0].MatchKey, Outcome: sheetport.OutcomeNotFound, Detail: "no matching row"},
			},
			HasAggregate: true,
			Aggregate:    sheetport.Aggregate{Updated: 1},
		}, nil
	}
	updater, tracker := newUpdater(t, port)
	seed(tracker, "a.mp4")

	updater.Schedule("a.mp4", "vid-1", "lib-1", 0)
	updater.Wait()

	rec, _ := tracker.Get("a.mp4")
	if rec.SheetStatus != results.SheetNotFound {
		t.Fatalf("status = %s, want notFound from per-row result", rec.SheetStatus)
	}
}

func TestTransientFailureRetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	port := testsupport.NewFakeSheetPort()
	port.Respond = func(rows []sheetport.Row) (sheetport.Response, error) {
		if attempts.Add(1) == 1 {
			return sheetport.Response{}, services.Wrap(services.ErrTransient, "sheet", "update", "connection reset", nil)
		}
		return sheetport.Response{HasAggregate: true, Aggregate: sheetport.Aggregate{Updated: 1}}, nil
	}
	updater, tracker := newUpdater(t, port)
	seed(tracker, "a.mp4")

	updater.Schedule("a.mp4", "vid-1", "lib-1", 0)
	updater.Wait()

	if got := attempts.Load(); got != 2 {
		t.Fatalf("attempts = %d, want 2", got)
	}
	rec, _ := tracker.Get("a.mp4")
	if rec.SheetStatus != results.SheetUpdated {
		t.Fatalf("status after retry = %s", rec.SheetStatus)
	}
}

func TestValidationFailureDoesNotRetry(t *testing.T) {
	var attempts atomic.Int32
	port := testsupport.NewFakeSheetPort()
	port.Respond = func(rows []sheetport.Row) (sheetport.Response, error) {
		attempts.Add(1)
		return sheetport.Response{}, services.Wrap(services.ErrValidation, "sheet", "update", "bad column", nil)
	}
	updater, tracker := newUpdater(t, port)
	seed(tracker, "a.mp4")

	updater.Schedule("a.mp4", "vid-1", "lib-1", 0)
	updater.Wait()

	if got := attempts.Load(); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
	rec, _ := tracker.Get("a.mp4")
	if rec.SheetStatus != results.SheetError {
		t.Fatalf("status = %s, want error", rec.SheetStatus)
	}
}

func TestBatchCompleteFiresExactlyOnce(t *testing.T) {
	port := testsupport.NewFakeSheetPort()
	updater, tracker := newUpdater(t, port)

	var fired atomic.Int32
	var done sync.WaitGroup
	done.Add(1)
	updater.OnBatchComplete(func() {
		if fired.Add(1) == 1 {
			done.Done()
		}
	})

	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		seed(tracker, name)
		updater.Schedule(name, "vid-"+name, "lib-1", 0)
	}
	updater.Wait()
	if fired.Load() != 0 {
		t.Fatal("callback fired before uploads were declared finished")
	}

	updater.UploadsFinished()
	done.Wait()

	// No further settlement should re-fire the callback.
	updater.UploadsFinished()
	time.Sleep(20 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("callback fired %d times, want 1", got)
	}
}

func TestZeroSuccessBatchStillSettles(t *testing.T) {
	port := testsupport.NewFakeSheetPort()
	updater, _ := newUpdater(t, port)

	var fired atomic.Int32
	var done sync.WaitGroup
	done.Add(1)
	updater.OnBatchComplete(func() {
		if fired.Add(1) == 1 {
			done.Done()
		}
	})

	// Every upload failed, so nothing was ever scheduled. The finished
	// signal alone must settle the batch.
	updater.UploadsFinished()
	done.Wait()

	if got := len(port.Calls()); got != 0 {
		t.Fatalf("port called %d times for an empty batch", got)
	}
}

func TestReopenAllowsSecondSettlement(t *testing.T) {
	port := testsupport.NewFakeSheetPort()
	updater, tracker := newUpdater(t, port)

	var fired atomic.Int32
	updater.OnBatchComplete(func() { fired.Add(1) })

	seed(tracker, "a.mp4")
	updater.Schedule("a.mp4", "vid-1", "lib-1", 0)
	updater.Wait()
	updater.UploadsFinished()
	if fired.Load() != 1 {
		t.Fatalf("first settlement fired %d times", fired.Load())
	}

	// A retry round schedules the files that failed the first time and
	// settles the batch again.
	updater.Reopen()
	seed(tracker, "b.mp4")
	updater.Schedule("b.mp4", "vid-2", "lib-1", 0)
	updater.Wait()
	updater.UploadsFinished()
	if fired.Load() != 2 {
		t.Fatalf("callback fired %d times after reopen, want 2", fired.Load())
	}
}

func TestResetClearsWatermark(t *testing.T) {
	release := make(chan struct{})
	port := testsupport.NewFakeSheetPort()
	port.Respond = func(rows []sheetport.Row) (sheetport.Response, error) {
		if rows[0].MatchKey == "b" {
			<-release
		}
		return sheetport.Response{HasAggregate: true, Aggregate: sheetport.Aggregate{Updated: 1}}, nil
	}
	updater, tracker := newUpdater(t, port)

	var fired atomic.Int32
	updater.OnBatchComplete(func() { fired.Add(1) })

	seed(tracker, "a.mp4")
	updater.Schedule("a.mp4", "vid-1", "lib-1", 0)
	updater.Wait()
	updater.Reset()

	// The old batch's settled work must not satisfy the new batch's
	// watermark while its own write is still in flight.
	seed(tracker, "b.mp4")
	updater.Schedule("b.mp4", "vid-2", "lib-1", 0)
	updater.UploadsFinished()
	time.Sleep(20 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("callback fired %d times with a write outstanding", fired.Load())
	}

	close(release)
	updater.Wait()
	time.Sleep(20 * time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("callback fired %d times, want 1", fired.Load())
	}
}
