package match

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"lectern/internal/config"
	"lectern/internal/learned"
	"lectern/internal/logging"
	"lectern/internal/parse"
)

// Matcher resolves parsed metadata to a library. It is safe for concurrent
// use; all durable state lives in the injected learned.Store.
type Matcher struct {
	store      learned.Store
	weights    Weights
	thresholds Thresholds
	logger     *slog.Logger
}

// New constructs a matcher with the production weights and the configured
// thresholds.
func New(store learned.Store, cfg config.Matcher, logger *slog.Logger) *Matcher {
	return &Matcher{
		store:      store,
		weights:    DefaultWeights(),
		thresholds: ThresholdsFromConfig(cfg),
		logger:     logging.NewComponentLogger(logger, "matcher"),
	}
}

// Match resolves the best-fit library for a file. Inability to resolve is
// not an error: the result simply carries NeedsManual. Store read failures
// are logged and treated as cache misses so matching can proceed.
func (m *Matcher) Match(ctx context.Context, parsed parse.Parsed, filename string, candidates []Candidate) Result {
	if signature := Signature(filename); signature != "" {
		mapping, found, err := m.store.LookupMapping(ctx, signature)
		if err != nil {
			m.logger.Warn("learned mapping lookup failed",
				logging.Error(err),
				logging.String(logging.FieldFilename, filename))
		} else if found {
			lib := Candidate{ID: mapping.LibraryID, Name: mapping.LibraryName}
			m.logger.Debug("resolved from learned mapping",
				logging.String(logging.FieldFilename, filename),
				logging.String(logging.FieldLibrary, lib.Name))
			return Result{Library: &lib, Confidence: 100, Source: SourceLearned}
		}
	}

	if key := PatternKey(parsed); key != "" {
		mapping, found, err := m.store.LookupPattern(ctx, key)
		if err != nil {
			m.logger.Warn("pattern cache lookup failed",
				logging.Error(err),
				logging.String("pattern_key", key))
		} else if found {
			lib := Candidate{ID: mapping.LibraryID, Name: mapping.LibraryName}
			m.logger.Debug("resolved from pattern cache",
				logging.String("pattern_key", key),
				logging.String(logging.FieldLibrary, lib.Name))
			return Result{Library: &lib, Confidence: 100, Source: SourcePattern}
		}
	}

	if len(candidates) == 0 {
		return Result{Confidence: 0, NeedsManual: true, Source: SourceNone}
	}

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		score := m.scoreCandidate(parsed, candidate)
		if score <= 0 {
			continue
		}
		scored = append(scored, ScoredCandidate{Candidate: candidate, Score: score})
	}
	if len(scored) == 0 {
		return Result{Confidence: 0, NeedsManual: true, Source: SourceNone}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Name < scored[j].Name
	})

	best := scored[0]
	confidence := best.Score
	if confidence > 100 {
		confidence = 100
	}

	alternatives := make([]ScoredCandidate, 0, m.thresholds.MaxAlternatives)
	for _, alt := range scored {
		if len(alternatives) == m.thresholds.MaxAlternatives {
			break
		}
		capped := alt
		if capped.Score > 100 {
			capped.Score = 100
		}
		alternatives = append(alternatives, capped)
	}

	if m.autoAccept(parsed, best.Candidate, confidence) {
		lib := best.Candidate
		m.seedCaches(ctx, parsed, learned.Mapping{LibraryID: lib.ID, LibraryName: lib.Name})
		m.logger.Debug("auto-accepted scored match",
			logging.String(logging.FieldFilename, filename),
			logging.String(logging.FieldLibrary, lib.Name),
			logging.Int("confidence", confidence))
		return Result{Library: &lib, Confidence: confidence, Alternatives: alternatives, Source: SourceScored}
	}

	m.logger.Debug("match needs manual selection",
		logging.String(logging.FieldFilename, filename),
		logging.Int("best_score", confidence),
		logging.Int("alternatives", len(alternatives)))
	return Result{
		Confidence:   confidence,
		Alternatives: alternatives,
		NeedsManual:  true,
		Source:       SourceScored,
	}
}

// autoAccept applies the tuned acceptance rules in order.
func (m *Matcher) autoAccept(parsed parse.Parsed, best Candidate, confidence int) bool {
	nameUpper := strings.ToUpper(best.Name)
	year := parsed.AcademicYear
	yearKnown := year != parse.YearUnknown && year != parse.YearError

	if confidence >= m.thresholds.AutoAccept {
		return true
	}
	// An exact teacher-code hit inside the winning name is decisive on its
	// own, whatever the total score.
	if parsed.TeacherCode != "" && strings.Contains(nameUpper, parsed.TeacherCode) {
		return true
	}
	if parsed.TeacherCode != "" && confidence >= m.thresholds.TeacherCode {
		return true
	}
	if yearKnown && parsed.Branch != "" && confidence >= m.thresholds.NamePrefix &&
		nameHasPrefixOfTeacher(best.Name, parsed.TeacherName) {
		return true
	}
	if parsed.HasBranchConflict && confidence >= m.thresholds.Conflict &&
		yearKnown && strings.HasPrefix(nameUpper, year) &&
		(containsLibraryToken(nameUpper, "SCI") || containsLibraryToken(nameUpper, "AR")) {
		return true
	}
	return false
}

func nameHasPrefixOfTeacher(libraryName, teacherName string) bool {
	teacher := normalizeName(teacherName)
	if teacher == "" {
		return false
	}
	library := normalizeName(libraryName)
	return strings.Contains(library, teacher) || strings.HasPrefix(teacher, library)
}

func containsLibraryToken(nameUpper, token string) bool {
	return indexOfToken(splitLibraryName(nameUpper), token) >= 0
}

// LearnManualSelection records a human correction. The filename's keyword
// signature maps permanently to the chosen library, and the pattern caches
// are seeded exactly as for an automatic match.
func (m *Matcher) LearnManualSelection(ctx context.Context, filename, libraryID, libraryName string) error {
	mapping := learned.Mapping{LibraryID: libraryID, LibraryName: libraryName}
	if signature := Signature(filename); signature != "" {
		if err := m.store.SaveMapping(ctx, signature, mapping); err != nil {
			return err
		}
	}
	m.seedCaches(ctx, parse.Parse(filename), mapping)
	m.logger.Info("learned manual selection",
		logging.String(logging.FieldFilename, filename),
		logging.String(logging.FieldLibrary, libraryName))
	return nil
}

// seedCaches writes the pattern cache entries for a resolved file: the
// primary key, the grade/teacher-name key, and the generated alternates.
// Failures are logged, not returned; the cache is an optimization.
func (m *Matcher) seedCaches(ctx context.Context, parsed parse.Parsed, mapping learned.Mapping) {
	keys := make([]string, 0, 8)
	if key := PatternKey(parsed); key != "" {
		keys = append(keys, key)
	}
	if key := gradeTeacherKey(parsed); key != "" {
		keys = append(keys, key)
	}
	keys = append(keys, alternateKeys(parsed)...)

	for _, key := range keys {
		if err := m.store.SavePattern(ctx, key, mapping); err != nil {
			m.logger.Warn("pattern cache write failed",
				logging.Error(err),
				logging.String("pattern_key", key))
		}
	}
}
