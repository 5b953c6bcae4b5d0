// Package sheetport is the spreadsheet write-back capability. The core
// hands it rows keyed by a match value; the transport reports per-row
// outcomes plus aggregate counters, and the caller applies its own
// stricter interpretation of the two.
package sheetport

import "context"

// Row is one pending spreadsheet update.
type Row struct {
	MatchKey  string
	EmbedCode string
	// DurationMinutes is written only when HasDuration is set; question
	// videos omit it.
	DurationMinutes float64
	HasDuration     bool
}

// Outcome is a per-row update result.
type Outcome string

const (
	OutcomeUpdated  Outcome = "updated"
	OutcomeNotFound Outcome = "notFound"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeError    Outcome = "error"
)

// RowResult reports one row's outcome.
type RowResult struct {
	MatchKey string
	Outcome  Outcome
	Detail   string
}

// Aggregate counts outcomes across a whole call.
type Aggregate struct {
	Updated  int
	NotFound int
	Skipped  int
	Errors   int
}

// Response is the transport's verdict. Success is the transport's overall
// flag; callers trust Rows first, then Aggregate, and never Success alone.
type Response struct {
	Success      bool
	Rows         []RowResult
	Aggregate    Aggregate
	HasAggregate bool
}

// Port applies row updates against the configured sheet.
type Port interface {
	UpdateRows(ctx context.Context, rows []Row) (Response, error)
}
