// Package storage defines the upload transport capability and its remote
// object-store implementation. The rest of the system treats the transport
// as opaque: stream a file, report progress, return the remote id.
package storage

import "context"

// Progress is a point-in-time transfer snapshot. BytesPerSec is zero when
// the transport reports no rate; callers fall back to elapsed-time math.
type Progress struct {
	UploadedBytes int64
	TotalBytes    int64
	BytesPerSec   float64
}

// Request identifies the local file and its remote destination.
type Request struct {
	LocalPath    string
	Filename     string
	LibraryID    string
	CollectionID string
	SizeBytes    int64
	ContentType  string
}

// Info describes the uploaded object.
type Info struct {
	RemoteID  string
	SizeBytes int64
}

// Uploader streams one file to remote storage. Implementations must honor
// context cancellation promptly so pause and cancel feel immediate.
type Uploader interface {
	Upload(ctx context.Context, req Request, onProgress func(Progress)) (Info, error)
}
