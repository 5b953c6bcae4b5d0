package match

import "lectern/internal/config"

// Weights are the per-signal score contributions. The values are
// empirically tuned; characterization tests lock them in place.
type Weights struct {
	TeacherCode         int
	TeacherCodePosition int
	YearPrefix          int
	YearContains        int
	Branch              int
	BranchPartial       int
	NameExact           int
	NameStrong          int
	NameGood            int
	NameWeak            int
	Structure           int
}

// DefaultWeights returns the production scoring weights.
func DefaultWeights() Weights {
	return Weights{
		TeacherCode:         55,
		TeacherCodePosition: 5,
		YearPrefix:          35,
		YearContains:        20,
		Branch:              20,
		BranchPartial:       12,
		NameExact:           25,
		NameStrong:          20,
		NameGood:            12,
		NameWeak:            6,
		Structure:           5,
	}
}

// Similarity cutoffs for tapering teacher-name credit.
const (
	nameSimilarityStrong = 0.8
	nameSimilarityGood   = 0.6
	nameSimilarityWeak   = 0.4
)

// Thresholds are the confidence gates for automatic acceptance.
type Thresholds struct {
	AutoAccept      int
	TeacherCode     int
	NamePrefix      int
	Conflict        int
	MaxAlternatives int
}

// DefaultThresholds returns the production acceptance thresholds.
func DefaultThresholds() Thresholds {
	return ThresholdsFromConfig(config.Default().Matcher)
}

// ThresholdsFromConfig builds thresholds from the configuration section.
func ThresholdsFromConfig(cfg config.Matcher) Thresholds {
	return Thresholds{
		AutoAccept:      cfg.AutoAcceptConfidence,
		TeacherCode:     cfg.TeacherCodeConfidence,
		NamePrefix:      cfg.NamePrefixConfidence,
		Conflict:        cfg.ConflictConfidence,
		MaxAlternatives: cfg.MaxAlternatives,
	}
}
