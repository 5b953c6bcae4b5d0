// Package parse turns raw academic-video filenames into structured metadata.
//
// Filenames come from many human uploaders with inconsistent token ordering,
// so parsing is position-tolerant: the cleaned name is split into dash
// separated tokens and each token is tested against a table of patterns
// (teacher code, academic year, branch vocabulary, term, unit, lesson,
// class). Parse never fails; unparseable input degrades to sentinel values
// that callers must check for.
package parse
