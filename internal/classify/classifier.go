// Package classify maps parsed filename metadata to the remote collection a
// video belongs in. Classification is a pure decision table over two
// booleans (revision, question) and a derived term; it is cheap enough to
// recompute whenever needed.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"lectern/internal/parse"
)

// Decision names the target collection and carries a human-readable
// justification for audit display.
type Decision struct {
	Name   string
	Reason string
}

var (
	termTokenPattern = regexp.MustCompile(`(?i)\bT([12])\b`)

	// Spelled-out term phrases seen in real filenames, English and Arabic.
	firstTermPhrases  = []string{"first term", "term 1", "term1", "الترم الأول", "الترم الاول", "ترم أول", "ترم اول"}
	secondTermPhrases = []string{"second term", "term 2", "term2", "الترم الثاني", "ترم ثاني", "ترم تاني"}
)

// Classify decides the collection for a parsed file in the given target
// year (e.g. "2026"). Same input always yields the same decision.
func Classify(parsed parse.Parsed, year string) Decision {
	// Re-scan the original filename rather than trusting ContentType alone;
	// a file can be both revision and question and ContentType only holds
	// one value.
	isRevision := parsed.IsRevision() || parse.HasRevisionMarker(parsed.Original)
	isQuestion := parsed.IsQuestion() || parse.HasQuestionMarker(parsed.Original)
	term := deriveTerm(parsed)

	switch {
	case isRevision && isQuestion:
		return Decision{
			Name:   fmt.Sprintf("RE-%s-%s-QV", term, year),
			Reason: fmt.Sprintf("revision question video for %s %s", term, year),
		}
	case isRevision:
		return Decision{
			Name:   fmt.Sprintf("RE-%s", year),
			Reason: fmt.Sprintf("revision video for %s", year),
		}
	case isQuestion:
		return Decision{
			Name:   fmt.Sprintf("%s-%s-QV", term, year),
			Reason: fmt.Sprintf("question video for %s %s", term, year),
		}
	default:
		return Decision{
			Name:   fmt.Sprintf("%s-%s", term, year),
			Reason: fmt.Sprintf("full lesson for %s %s", term, year),
		}
	}
}

// deriveTerm prefers the parsed term token, then a scan of the original
// filename, and finally defaults to T1.
func deriveTerm(parsed parse.Parsed) string {
	if parsed.Term != "" {
		return parsed.Term
	}
	if m := termTokenPattern.FindStringSubmatch(parsed.Original); m != nil {
		return "T" + m[1]
	}
	lowered := strings.ToLower(parsed.Original)
	for _, phrase := range secondTermPhrases {
		if strings.Contains(lowered, phrase) {
			return "T2"
		}
	}
	for _, phrase := range firstTermPhrases {
		if strings.Contains(lowered, phrase) {
			return "T1"
		}
	}
	return "T1"
}
