package results_test

import (
	"testing"

	"lectern/internal/results"
)

func TestUpsertReplacesByFilename(t *testing.T) {
	tracker := results.NewTracker()

	tracker.Upsert(results.Record{
		Filename:     "S1 AR T1 P0046 Ahmed.mp4",
		UploadStatus: results.UploadError,
		ErrorDetails: "connection reset",
	})
	tracker.Upsert(results.Record{
		Filename:     "S1 AR T1 P0046 Ahmed.mp4",
		UploadStatus: results.UploadSuccess,
		VideoID:      "vid-123",
	})

	records := tracker.Records()
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].UploadStatus != results.UploadSuccess || records[0].VideoID != "vid-123" {
		t.Fatalf("retry did not replace record: %+v", records[0])
	}
}

func TestSheetStatusDefaults(t *testing.T) {
	tracker := results.NewTracker()
	tracker.Upsert(results.Record{Filename: "a.mp4", UploadStatus: results.UploadSuccess})
	tracker.Upsert(results.Record{Filename: "b.mp4", UploadStatus: results.UploadError})

	a, _ := tracker.Get("a.mp4")
	if a.SheetStatus != results.SheetPending {
		t.Fatalf("successful upload sheet status = %s, want pending", a.SheetStatus)
	}
	b, _ := tracker.Get("b.mp4")
	if b.SheetStatus != results.SheetSkipped {
		t.Fatalf("failed upload sheet status = %s, want skipped", b.SheetStatus)
	}
}

func TestSetSheetStatusAndStats(t *testing.T) {
	tracker := results.NewTracker()
	tracker.Upsert(results.Record{Filename: "a.mp4", UploadStatus: results.UploadSuccess})
	tracker.Upsert(results.Record{Filename: "b.mp4", UploadStatus: results.UploadSuccess})
	tracker.Upsert(results.Record{Filename: "c.mp4", UploadStatus: results.UploadError})

	tracker.SetSheetStatus("a.mp4", results.SheetUpdated, "")
	tracker.SetSheetStatus("b.mp4", results.SheetNotFound, "no matching row")
	tracker.SetSheetStatus("missing.mp4", results.SheetUpdated, "")

	stats := tracker.Stats()
	if stats.Succeeded != 2 || stats.Failed != 1 {
		t.Fatalf("upload stats = %+v", stats)
	}
	if stats.SheetUpdated != 1 || stats.SheetNotFound != 1 || stats.SheetSkipped != 1 {
		t.Fatalf("sheet stats = %+v", stats)
	}

	b, _ := tracker.Get("b.mp4")
	if b.ErrorDetails != "no matching row" {
		t.Fatalf("details not recorded: %q", b.ErrorDetails)
	}
}

func TestReset(t *testing.T) {
	tracker := results.NewTracker()
	tracker.Upsert(results.Record{Filename: "a.mp4", UploadStatus: results.UploadSuccess})
	tracker.Reset()

	if len(tracker.Records()) != 0 {
		t.Fatal("records survived reset")
	}
}
