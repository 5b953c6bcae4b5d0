package match

import (
	"strings"
	"unicode"

	"lectern/internal/parse"
)

// commonBranches are cross-joined into alternate pattern keys so a later
// filename for the same teacher hits the cache even when its branch token
// differs from the one that was learned.
var commonBranches = []string{"AR", "EN", "SCI", "MATH", "SS"}

// Signature reduces a filename to its significant keywords: tokens longer
// than two runes that are not purely numeric, lower-cased and joined. This
// is the permanent learned-mapping key.
func Signature(filename string) string {
	var keywords []string
	for _, token := range tokenizeFilename(filename) {
		if len([]rune(token)) <= 2 {
			continue
		}
		if isNumericToken(token) {
			continue
		}
		keywords = append(keywords, strings.ToLower(token))
	}
	return strings.Join(keywords, "|")
}

// PatternKey is the primary coarse cache key: year, branch, teacher code.
// Empty when the filename carries no teacher code.
func PatternKey(parsed parse.Parsed) string {
	if parsed.TeacherCode == "" {
		return ""
	}
	return joinKey(parsed.AcademicYear, parsed.Branch, parsed.TeacherCode)
}

// gradeTeacherKey keys on year, branch, and normalized teacher name.
func gradeTeacherKey(parsed parse.Parsed) string {
	name := normalizeName(parsed.TeacherName)
	if name == "" {
		return ""
	}
	return joinKey(parsed.AcademicYear, parsed.Branch, name)
}

// alternateKeys anticipates branch drift in future filenames: the SCI/AR
// swap, the branchless form, and a cross-join over common branches.
func alternateKeys(parsed parse.Parsed) []string {
	if parsed.TeacherCode == "" {
		return nil
	}
	seen := map[string]struct{}{}
	var keys []string
	add := func(key string) {
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	switch parsed.Branch {
	case "SCI":
		add(joinKey(parsed.AcademicYear, "AR", parsed.TeacherCode))
	case "AR":
		add(joinKey(parsed.AcademicYear, "SCI", parsed.TeacherCode))
	}
	add(joinKey(parsed.AcademicYear, "", parsed.TeacherCode))
	for _, branch := range commonBranches {
		if branch == parsed.Branch {
			continue
		}
		add(joinKey(parsed.AcademicYear, branch, parsed.TeacherCode))
	}
	return keys
}

func joinKey(parts ...string) string {
	return strings.Join(parts, "|")
}

func tokenizeFilename(filename string) []string {
	stripped := filename
	if idx := strings.LastIndex(stripped, "."); idx > 0 {
		ext := stripped[idx+1:]
		if len(ext) <= 5 && isASCIIWord(ext) {
			stripped = stripped[:idx]
		}
	}
	return strings.FieldsFunc(stripped, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isNumericToken(token string) bool {
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return token != ""
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}

// normalizeName lowers a human name and keeps only letters and digits, so
// "Ahmed Youssef" and "AhmedYoussef" compare equal.
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
