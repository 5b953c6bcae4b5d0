package queue

import (
	"context"
	"strings"
	"time"

	"lectern/internal/match"
	"lectern/internal/parse"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusPaused,
	StatusCompleted,
	StatusError,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the item's lifecycle for this
// attempt. Error is terminal per attempt; the orchestrator may re-enqueue.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// FileRef is the opaque handle to the local file being uploaded.
type FileRef struct {
	Path      string
	SizeBytes int64
}

// Metadata holds the resolved or proposed destination for an item.
type Metadata struct {
	LibraryID            string
	LibraryName          string
	CollectionName       string
	CollectionReason     string
	Year                 string
	NeedsManualSelection bool
	Confidence           int
	SuggestedLibraries   []match.ScoredCandidate
	// SuggestedLibraryName is shown for unresolved items that have a best
	// guess but not enough confidence to act on it.
	SuggestedLibraryName string
	// VideoDurationSeconds is probed once when the file enters the
	// pipeline and cached here.
	VideoDurationSeconds float64
}

// Item is the mutable unit of work. The queue Manager owns it exclusively;
// the uploader mutates progress fields through Manager methods during a
// transfer but never holds the item.
type Item struct {
	ID       string
	File     FileRef
	Filename string
	Parsed   parse.Parsed
	Status   Status

	Progress                  float64
	UploadedBytes             int64
	TotalBytes                int64
	UploadSpeedBytesPerSec    float64
	EstimatedSecondsRemaining float64
	ErrorMessage              string
	IsPaused                  bool

	Meta Metadata

	CreatedAt time.Time
	UpdatedAt time.Time

	// abort cancels the current transfer attempt with a cause. It is
	// replaced with a fresh handle on every resume; an already-aborted
	// handle is never reused.
	abort context.CancelCauseFunc
}

// SortKey returns the grouping base name and question number used to keep
// numbered question sequences contiguous.
func (i *Item) SortKey() (string, int) {
	base := parse.BaseName(i.Filename)
	number, ok := parse.QuestionNumber(i.Filename)
	if !ok {
		number = 0
	}
	return base, number
}

// clone returns a copy safe to hand outside the Manager's lock. The abort
// handle is deliberately not copied.
func (i *Item) clone() Item {
	cp := *i
	cp.abort = nil
	if len(i.Meta.SuggestedLibraries) > 0 {
		cp.Meta.SuggestedLibraries = append([]match.ScoredCandidate(nil), i.Meta.SuggestedLibraries...)
	}
	return cp
}

// Counts aggregates queue membership per lifecycle state.
type Counts struct {
	Pending    int
	Processing int
	Paused     int
	Completed  int
	Error      int
	Cancelled  int
	Unresolved int
}

// Active reports whether any work remains in flight or schedulable.
func (c Counts) Active() bool {
	return c.Pending > 0 || c.Processing > 0
}
