// Package catalog exposes the remote video-library hierarchy. Libraries
// are vendor accounts per grade/subject/teacher; collections group videos
// inside one library per term and year.
package catalog

import "context"

// Library is one remote video library.
type Library struct {
	ID   string
	Name string
}

// Collection is one named group of videos inside a library.
type Collection struct {
	ID   string
	Name string
}

// Service reads and extends the remote hierarchy.
type Service interface {
	// ListLibraries returns every library visible to the account.
	ListLibraries(ctx context.Context) ([]Library, error)
	// ListCollections returns the collections of one library.
	ListCollections(ctx context.Context, libraryID string) ([]Collection, error)
	// EnsureCollection returns the collection with the given name,
	// creating it when absent. Name comparison is case-insensitive.
	EnsureCollection(ctx context.Context, libraryID, name string) (Collection, error)
}
