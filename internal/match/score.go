package match

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"lectern/internal/parse"
)

// scoreCandidate accumulates weighted signal points for one candidate
// library. The raw sum may exceed 100; ranking uses the raw value and the
// reported confidence is capped by the caller.
func (m *Matcher) scoreCandidate(parsed parse.Parsed, candidate Candidate) int {
	nameUpper := strings.ToUpper(candidate.Name)
	nameTokens := splitLibraryName(nameUpper)
	score := 0

	codeIdx := -1
	if parsed.TeacherCode != "" && strings.Contains(nameUpper, parsed.TeacherCode) {
		score += m.weights.TeacherCode
		codeIdx = indexOfToken(nameTokens, parsed.TeacherCode)
		// Conventional library names put the code third (year-branch-code).
		if codeIdx == 2 {
			score += m.weights.TeacherCodePosition
		}
	}

	yearIdx := -1
	if year := parsed.AcademicYear; year != parse.YearUnknown && year != parse.YearError {
		switch {
		case strings.HasPrefix(nameUpper, year):
			score += m.weights.YearPrefix
			yearIdx = 0
		case strings.Contains(nameUpper, year):
			score += m.weights.YearContains
			yearIdx = indexOfToken(nameTokens, year)
		}
	}

	branchIdx := -1
	if parsed.HasBranchConflict {
		// The filename is ambiguous between SCI and AR; a library matching
		// only one of the two earns partial credit, not full.
		if idx := indexOfToken(nameTokens, "SCI"); idx >= 0 {
			score += m.weights.BranchPartial
			branchIdx = idx
		} else if idx := indexOfToken(nameTokens, "AR"); idx >= 0 {
			score += m.weights.BranchPartial
			branchIdx = idx
		}
	} else if parsed.Branch != "" {
		if idx := indexOfToken(nameTokens, parsed.Branch); idx >= 0 {
			score += m.weights.Branch
			branchIdx = idx
		}
	}

	score += m.scoreTeacherName(parsed.TeacherName, candidate.Name)

	// Structural bonus when the recognized parts appear in the
	// conventional year-branch-code order.
	if yearIdx == 0 && branchIdx > yearIdx && codeIdx > branchIdx {
		score += m.weights.Structure
	}

	return score
}

func (m *Matcher) scoreTeacherName(teacherName, libraryName string) int {
	query := normalizeName(teacherName)
	if query == "" {
		return 0
	}
	target := normalizeName(libraryName)
	if target == "" {
		return 0
	}

	if target == query || strings.HasPrefix(target, query) || strings.Contains(target, query) {
		return m.weights.NameExact
	}

	distance := fuzzy.LevenshteinDistance(query, target)
	longest := len(query)
	if len(target) > longest {
		longest = len(target)
	}
	if longest == 0 {
		return 0
	}
	similarity := 1.0 - float64(distance)/float64(longest)
	switch {
	case similarity >= nameSimilarityStrong:
		return m.weights.NameStrong
	case similarity >= nameSimilarityGood:
		return m.weights.NameGood
	case similarity >= nameSimilarityWeak:
		return m.weights.NameWeak
	default:
		// Whole-string distance punishes short names inside long library
		// names; retry against each name segment.
		best := 0.0
		for _, segment := range splitLibraryName(strings.ToLower(libraryName)) {
			segment = normalizeName(segment)
			if segment == "" {
				continue
			}
			d := fuzzy.LevenshteinDistance(query, segment)
			l := len(query)
			if len(segment) > l {
				l = len(segment)
			}
			if s := 1.0 - float64(d)/float64(l); s > best {
				best = s
			}
		}
		switch {
		case best >= nameSimilarityStrong:
			return m.weights.NameStrong
		case best >= nameSimilarityGood:
			return m.weights.NameGood
		case best >= nameSimilarityWeak:
			return m.weights.NameWeak
		}
		return 0
	}
}

func splitLibraryName(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
}

func indexOfToken(tokens []string, target string) int {
	for i, token := range tokens {
		if token == target {
			return i
		}
	}
	return -1
}
