package parse

import "regexp"

// Branch codes that may appear as standalone tokens. GEOG and STAST are
// real-world spelling variants, not typos.
var branchVocabulary = []string{
	"AR", "EN", "SCI", "SS", "MATH", "BIO", "CH", "PHY", "FR", "IT",
	"GEO", "GEOG", "STATS", "STAST", "ISC", "COM", "PHL", "PSYCH", "DEU", "HX",
}

var branchSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(branchVocabulary))
	for _, code := range branchVocabulary {
		set[code] = struct{}{}
	}
	return set
}()

// revisionKeywords mark a file as revision content wherever they appear in
// the cleaned name or the Arabic annotation.
var revisionKeywords = []string{"revision", "revise", "مراجعة"}

// questionKeywords mark a file as question content.
var questionKeywords = []string{"quiz", "test"}

var (
	teacherCodePattern = regexp.MustCompile(`^P(\d{4})$`)

	// teacherCodeJoinPattern repairs codes written with a separating dash
	// ("P-0331") before tokenization splits them apart.
	teacherCodeJoinPattern = regexp.MustCompile(`(?i)\bP-(\d{4})\b`)
	academicYearPattern = regexp.MustCompile(`^[JMS][1-6]$`)
	termPattern         = regexp.MustCompile(`^T[12]$`)
	unitPattern         = regexp.MustCompile(`^U(\d+)$`)
	lessonPattern       = regexp.MustCompile(`^L(\d+)$`)
	classPattern        = regexp.MustCompile(`^C(\d+)$`)

	// metadataShapedPattern matches tokens that look like structural
	// metadata and therefore cannot be part of a teacher name.
	metadataShapedPattern = regexp.MustCompile(`^[TULCQ]\d+$`)

	questionNumberPattern = regexp.MustCompile(`(?i)\bQ(\d+)\b`)

	braceAnnotationPattern = regexp.MustCompile(`\{([^{}]*)\}`)

	dashRunPattern        = regexp.MustCompile(`-{2,}`)
	dashWhitespacePattern = regexp.MustCompile(`\s*-\s*`)

	alphabeticPattern = regexp.MustCompile(`\p{L}`)
)

func isBranchToken(token string) bool {
	_, ok := branchSet[token]
	return ok
}
