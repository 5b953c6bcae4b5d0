// Package services holds the error taxonomy shared by the upload pipeline.
// Errors from external capabilities (catalog, storage, spreadsheet) are
// wrapped with a sentinel marker so callers can classify a failure without
// string matching.
package services
