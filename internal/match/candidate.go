package match

// Candidate is one remote library the matcher may assign a file to.
type Candidate struct {
	ID   string
	Name string
}

// ScoredCandidate pairs a candidate with its accumulated score.
type ScoredCandidate struct {
	Candidate
	Score int
}

// Source records which resolution tier produced a result.
type Source string

const (
	SourceLearned Source = "learned"
	SourcePattern Source = "pattern"
	SourceScored  Source = "scored"
	SourceNone    Source = "none"
)

// Result is the outcome of one match attempt. A nil Library with
// NeedsManual set is the expected terminal state for ambiguous input.
type Result struct {
	Library      *Candidate
	Confidence   int
	Alternatives []ScoredCandidate
	NeedsManual  bool
	Source       Source
}
