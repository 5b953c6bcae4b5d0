// Package results tracks per-file upload outcomes for the current session.
// Records are keyed by filename so retries replace rather than duplicate.
package results

import (
	"sync"
	"time"
)

// UploadStatus is the transfer outcome for one file.
type UploadStatus string

const (
	UploadSuccess   UploadStatus = "success"
	UploadError     UploadStatus = "error"
	UploadSkipped   UploadStatus = "skipped"
	UploadDuplicate UploadStatus = "duplicate"
)

// SheetStatus is the spreadsheet write-back state for one file.
type SheetStatus string

const (
	SheetPending    SheetStatus = "pending"
	SheetProcessing SheetStatus = "processing"
	SheetUpdated    SheetStatus = "updated"
	SheetNotFound   SheetStatus = "notFound"
	SheetSkipped    SheetStatus = "skipped"
	SheetError      SheetStatus = "error"
)

// Record is one file's final transfer outcome plus its sheet write-back
// state, which keeps changing after the upload itself finishes.
type Record struct {
	Filename              string
	UploadStatus          UploadStatus
	SheetStatus           SheetStatus
	LibraryID             string
	LibraryName           string
	CollectionName        string
	VideoID               string
	EmbedCode             string
	SizeBytes             int64
	DurationSeconds       float64
	UploadDurationSeconds float64
	ErrorDetails          string
	FinishedAt            time.Time
}

// Stats aggregates the session's records for display.
type Stats struct {
	Succeeded     int
	Failed        int
	SheetPending  int
	SheetUpdated  int
	SheetNotFound int
	SheetSkipped  int
	SheetError    int
}

// Tracker holds the session's upload records. A filename appears at most
// once; completing the same file again replaces the earlier record.
type Tracker struct {
	mu         sync.Mutex
	byFilename map[string]*Record
	order      []string
}

func NewTracker() *Tracker {
	return &Tracker{byFilename: make(map[string]*Record)}
}

// Upsert stores a record, replacing any earlier one for the same filename.
// A zero SheetStatus defaults to pending for successful uploads and
// skipped for everything else.
func (t *Tracker) Upsert(rec Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec.SheetStatus == "" {
		if rec.UploadStatus == UploadSuccess {
			rec.SheetStatus = SheetPending
		} else {
			rec.SheetStatus = SheetSkipped
		}
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now().UTC()
	}

	if existing, ok := t.byFilename[rec.Filename]; ok {
		*existing = rec
		return
	}
	stored := rec
	t.byFilename[rec.Filename] = &stored
	t.order = append(t.order, rec.Filename)
}

// SetSheetStatus updates the write-back state of an existing record. It is
// a no-op for filenames without a record; the sheet updater only runs for
// files that completed an upload.
func (t *Tracker) SetSheetStatus(filename string, status SheetStatus, details string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.byFilename[filename]
	if !ok {
		return
	}
	rec.SheetStatus = status
	if details != "" {
		rec.ErrorDetails = details
	}
}

// Get returns a copy of the record for a filename.
func (t *Tracker) Get(filename string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.byFilename[filename]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Records returns copies of all records in insertion order.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.byFilename[name])
	}
	return out
}

// Stats aggregates the current records.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	var stats Stats
	for _, rec := range t.byFilename {
		switch rec.UploadStatus {
		case UploadSuccess:
			stats.Succeeded++
		case UploadError:
			stats.Failed++
		}
		switch rec.SheetStatus {
		case SheetPending, SheetProcessing:
			stats.SheetPending++
		case SheetUpdated:
			stats.SheetUpdated++
		case SheetNotFound:
			stats.SheetNotFound++
		case SheetSkipped:
			stats.SheetSkipped++
		case SheetError:
			stats.SheetError++
		}
	}
	return stats
}

// Reset drops every record, typically between batches.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byFilename = make(map[string]*Record)
	t.order = nil
}
