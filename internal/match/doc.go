// Package match assigns parsed video metadata to the best-fit remote
// library.
//
// Resolution runs in priority order: an exact learned mapping from a prior
// manual correction, then the coarser year+branch+teacher pattern cache,
// then weighted scoring over every candidate library. Scores accumulate
// from teacher-code, academic-year, branch, and fuzzy teacher-name signals
// and are capped at 100. A candidate is auto-accepted when it clears one of
// the tuned confidence rules; otherwise the caller must ask a human, which
// is an expected outcome rather than an error.
//
// Every accepted resolution, automatic or manual, seeds the pattern cache
// under several deliberately generated alternate keys so the next filename
// for the same teacher still hits the cache when it omits or swaps the
// branch token.
package match
