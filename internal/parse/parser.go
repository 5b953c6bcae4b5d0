package parse

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ContentType classifies what a video contains.
type ContentType string

const (
	ContentFullLesson ContentType = "full_lesson"
	ContentRevision   ContentType = "revision"
	ContentQuestion   ContentType = "question"
)

// Sentinel academic-year values. Parse never reports failure through an
// error; callers check for these instead.
const (
	YearUnknown = "Unknown"
	YearError   = "Error"
)

// Parsed is the structured metadata derived from one filename. It is
// computed once when a file enters the pipeline and never mutated; callers
// that need fresh data re-derive it.
type Parsed struct {
	ContentType       ContentType
	AcademicYear      string
	Term              string
	Unit              string
	Lesson            string
	Class             string
	Branch            string
	SecondaryBranch   string
	HasBranchConflict bool
	TeacherCode       string
	TeacherName       string
	ArabicAnnotation  string
	Original          string
}

var titleCaser = cases.Title(language.Und)

// Parse extracts structured metadata from a filename. It never panics and
// never returns an error: on any internal failure the result carries
// AcademicYear == YearError with safe defaults.
func Parse(filename string) (parsed Parsed) {
	parsed = Parsed{
		ContentType:  ContentFullLesson,
		AcademicYear: YearUnknown,
		Original:     filename,
	}
	defer func() {
		if r := recover(); r != nil {
			parsed = Parsed{
				ContentType:  ContentFullLesson,
				AcademicYear: YearError,
				Original:     filename,
			}
		}
	}()

	name := stripExtension(filename)
	name = normalizeSeparators(name)
	name = teacherCodeJoinPattern.ReplaceAllString(name, "P$1")

	if m := braceAnnotationPattern.FindStringSubmatch(name); m != nil {
		parsed.ArabicAnnotation = strings.TrimSpace(m[1])
		name = braceAnnotationPattern.ReplaceAllString(name, " ")
		name = normalizeSeparators(name)
	}

	tokens := splitTokens(name)

	codeIdx := -1
	lastBranchIdx := -1
	var branchesSeen []string

	for i, token := range tokens {
		upper := strings.ToUpper(token)
		switch {
		case teacherCodePattern.MatchString(upper):
			if parsed.TeacherCode == "" {
				parsed.TeacherCode = "P" + teacherCodePattern.FindStringSubmatch(upper)[1]
				codeIdx = i
			}
		case academicYearPattern.MatchString(upper):
			if parsed.AcademicYear == YearUnknown {
				parsed.AcademicYear = upper
			}
		case isBranchToken(upper):
			branchesSeen = append(branchesSeen, upper)
			lastBranchIdx = i
			if parsed.Branch == "" {
				parsed.Branch = upper
			} else if parsed.SecondaryBranch == "" && upper != parsed.Branch {
				parsed.SecondaryBranch = upper
			}
		case termPattern.MatchString(upper):
			if parsed.Term == "" {
				parsed.Term = upper
			}
		case unitPattern.MatchString(upper):
			if parsed.Unit == "" {
				parsed.Unit = upper
			}
		case lessonPattern.MatchString(upper):
			if parsed.Lesson == "" {
				parsed.Lesson = upper
			}
		case classPattern.MatchString(upper):
			if parsed.Class == "" {
				parsed.Class = upper
			}
		}
	}

	// SCI and AR are commonly confused upstream; when both appear, flag the
	// conflict so the matcher treats either as a valid candidate.
	if containsFold(branchesSeen, "SCI") && containsFold(branchesSeen, "AR") {
		parsed.HasBranchConflict = true
	}

	switch {
	case hasRevisionMarker(name, parsed.ArabicAnnotation, tokens):
		parsed.ContentType = ContentRevision
	case hasQuestionMarker(name, parsed.ArabicAnnotation):
		parsed.ContentType = ContentQuestion
	}

	parsed.TeacherName = extractTeacherName(tokens, codeIdx, lastBranchIdx)

	// Positional retry: some uploaders glue the year onto the first token.
	if parsed.AcademicYear == YearUnknown && len(tokens) > 0 {
		first := strings.ToUpper(tokens[0])
		if academicYearPattern.MatchString(first) {
			parsed.AcademicYear = first
		} else if len(first) >= 2 && academicYearPattern.MatchString(first[:2]) {
			parsed.AcademicYear = first[:2]
		}
	}

	return parsed
}

// IsQuestion reports whether the parsed file carries question content.
func (p Parsed) IsQuestion() bool { return p.ContentType == ContentQuestion }

// IsRevision reports whether the parsed file carries revision content.
func (p Parsed) IsRevision() bool { return p.ContentType == ContentRevision }

// HasQuestionMarker re-scans a raw filename for question patterns. Used by
// consumers that need the question decision without a full parse.
func HasQuestionMarker(filename string) bool {
	name := normalizeSeparators(stripExtension(filename))
	annotation := ""
	if m := braceAnnotationPattern.FindStringSubmatch(name); m != nil {
		annotation = m[1]
	}
	return hasQuestionMarker(name, annotation)
}

// HasRevisionMarker re-scans a raw filename for revision patterns.
func HasRevisionMarker(filename string) bool {
	name := normalizeSeparators(stripExtension(filename))
	annotation := ""
	if m := braceAnnotationPattern.FindStringSubmatch(name); m != nil {
		annotation = m[1]
	}
	return hasRevisionMarker(name, annotation, splitTokens(name))
}

// QuestionNumber extracts the numeric value of a trailing Q<digits> marker.
func QuestionNumber(filename string) (int, bool) {
	m := questionNumberPattern.FindStringSubmatch(stripExtension(filename))
	if m == nil {
		return 0, false
	}
	value := 0
	for _, r := range m[1] {
		value = value*10 + int(r-'0')
	}
	return value, true
}

// BaseName strips the extension and any Q<digits> marker, yielding the key
// that groups a numbered question sequence together.
func BaseName(filename string) string {
	name := normalizeSeparators(stripExtension(filename))
	name = questionNumberPattern.ReplaceAllString(name, "")
	name = normalizeSeparators(name)
	return strings.Trim(name, "- ")
}

func stripExtension(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	ext := filepath.Ext(base)
	// Only strip short ASCII extensions; an Arabic suffix after a dot is
	// part of the name, not an extension.
	if len(ext) >= 2 && len(ext) <= 6 && isASCIIAlnum(ext[1:]) {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

func isASCIIAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func normalizeSeparators(name string) string {
	replacer := strings.NewReplacer("_", "-", "—", "-", "–", "-")
	name = replacer.Replace(name)
	name = dashWhitespacePattern.ReplaceAllString(name, "-")
	name = dashRunPattern.ReplaceAllString(name, "-")
	return strings.TrimSpace(name)
}

func splitTokens(name string) []string {
	raw := strings.Split(name, "-")
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func hasRevisionMarker(name, annotation string, tokens []string) bool {
	for _, token := range tokens {
		if strings.EqualFold(token, "RE") {
			return true
		}
	}
	haystack := strings.ToLower(name + " " + annotation)
	for _, keyword := range revisionKeywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

func hasQuestionMarker(name, annotation string) bool {
	if questionNumberPattern.MatchString(name) || questionNumberPattern.MatchString(annotation) {
		return true
	}
	haystack := strings.ToLower(name + " " + annotation)
	for _, keyword := range questionKeywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

// extractTeacherName pulls a best-effort human name out of the token stream.
// Preference order: tokens after the teacher code, tokens after the last
// branch token, then the last token that looks alphabetic.
func extractTeacherName(tokens []string, codeIdx, lastBranchIdx int) string {
	start := -1
	switch {
	case codeIdx >= 0:
		start = codeIdx + 1
	case lastBranchIdx >= 0:
		start = lastBranchIdx + 1
	}

	if start >= 0 {
		var parts []string
		for _, token := range tokens[start:] {
			if isStructuralToken(token) {
				continue
			}
			parts = append(parts, token)
		}
		if len(parts) > 0 {
			return titleCaser.String(strings.Join(parts, " "))
		}
	}

	for i := len(tokens) - 1; i >= 0; i-- {
		token := tokens[i]
		if isStructuralToken(token) {
			continue
		}
		if alphabeticPattern.MatchString(token) {
			return titleCaser.String(token)
		}
	}
	return ""
}

func isStructuralToken(token string) bool {
	upper := strings.ToUpper(token)
	switch {
	case teacherCodePattern.MatchString(upper),
		academicYearPattern.MatchString(upper),
		isBranchToken(upper),
		termPattern.MatchString(upper),
		metadataShapedPattern.MatchString(upper),
		upper == "RE":
		return true
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return token != ""
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(value, target) {
			return true
		}
	}
	return false
}
