// Package logging wraps log/slog with the handlers and attribute helpers
// used across lectern. Console output is a compact single-line format with
// a leading component tag; JSON output is meant for log shipping. Components
// obtain a tagged logger via NewComponentLogger.
package logging
