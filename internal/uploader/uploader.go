// Package uploader runs one queue item's transfer against the storage
// transport, keeping byte-level progress on the item and recording the
// structured per-file result.
package uploader

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/results"
	"lectern/internal/services"
	"lectern/internal/storage"
)

// SuccessFunc is invoked after a completed transfer, before the item is
// visible as completed to the scheduling loop.
type SuccessFunc func(filename, remoteID, libraryID string)

// Uploader executes transfers and records their outcomes.
type Uploader struct {
	queue     *queue.Manager
	tracker   *results.Tracker
	transport storage.Uploader
	logger    *slog.Logger
}

func New(q *queue.Manager, tracker *results.Tracker, transport storage.Uploader, logger *slog.Logger) *Uploader {
	return &Uploader{
		queue:     q,
		tracker:   tracker,
		transport: transport,
		logger:    logging.NewComponentLogger(logger, "uploader"),
	}
}

// Upload streams the item's file. A user pause parks the item and a user
// cancel leaves no trace; only genuine transport failures produce an
// error record. The error is returned either way so the caller can react.
func (u *Uploader) Upload(ctx context.Context, item queue.Item, collectionID string, onSuccess SuccessFunc) error {
	start := time.Now()
	req := storage.Request{
		LocalPath:    item.File.Path,
		Filename:     item.Filename,
		LibraryID:    item.Meta.LibraryID,
		CollectionID: collectionID,
		SizeBytes:    item.File.SizeBytes,
	}

	info, err := u.transport.Upload(ctx, req, func(p storage.Progress) {
		u.recordProgress(item.ID, p, start)
	})
	if err != nil {
		return u.handleFailure(ctx, item, err)
	}

	elapsed := time.Since(start).Seconds()
	u.tracker.Upsert(results.Record{
		Filename:              item.Filename,
		UploadStatus:          results.UploadSuccess,
		LibraryID:             item.Meta.LibraryID,
		LibraryName:           item.Meta.LibraryName,
		CollectionName:        item.Meta.CollectionName,
		VideoID:               info.RemoteID,
		SizeBytes:             info.SizeBytes,
		DurationSeconds:       item.Meta.VideoDurationSeconds,
		UploadDurationSeconds: elapsed,
	})
	// Schedule downstream work before the item counts as completed, so a
	// scheduler that sees the completed state also sees the scheduled work.
	if onSuccess != nil {
		onSuccess(item.Filename, info.RemoteID, item.Meta.LibraryID)
	}
	u.queue.MarkCompleted(item.ID)

	u.logger.Info("upload completed",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldFilename, item.Filename),
		slog.Int64("bytes", info.SizeBytes),
		slog.Float64("seconds", elapsed))
	return nil
}

func (u *Uploader) recordProgress(itemID string, p storage.Progress, start time.Time) {
	speed := p.BytesPerSec
	if speed <= 0 {
		if elapsed := time.Since(start).Seconds(); elapsed > 0 {
			speed = float64(p.UploadedBytes) / elapsed
		}
	}
	var eta float64
	if speed > 0 {
		eta = float64(p.TotalBytes-p.UploadedBytes) / speed
	}
	var percent float64
	if p.TotalBytes > 0 {
		percent = 100 * float64(p.UploadedBytes) / float64(p.TotalBytes)
	}
	u.queue.UpdateProgress(itemID, p.UploadedBytes, p.TotalBytes, percent, speed, eta)
}

// handleFailure tells deliberate aborts apart from transport failures.
// The abort cause travels on the context; some transports also return it
// directly.
func (u *Uploader) handleFailure(ctx context.Context, item queue.Item, err error) error {
	cause := err
	if errors.Is(err, context.Canceled) {
		if c := context.Cause(ctx); c != nil {
			cause = c
		}
	}
	switch {
	case errors.Is(cause, services.ErrUserPause):
		u.queue.MarkPaused(item.ID)
		u.logger.Info("upload paused",
			logging.String(logging.FieldItemID, item.ID),
			logging.String(logging.FieldFilename, item.Filename))
		return cause
	case errors.Is(cause, services.ErrUserCancel):
		u.logger.Info("upload cancelled",
			logging.String(logging.FieldItemID, item.ID),
			logging.String(logging.FieldFilename, item.Filename))
		return cause
	}

	u.tracker.Upsert(results.Record{
		Filename:       item.Filename,
		UploadStatus:   results.UploadError,
		LibraryID:      item.Meta.LibraryID,
		LibraryName:    item.Meta.LibraryName,
		CollectionName: item.Meta.CollectionName,
		SizeBytes:      item.File.SizeBytes,
		ErrorDetails:   err.Error(),
	})
	u.queue.MarkError(item.ID, err.Error())
	u.logger.Error("upload failed",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldFilename, item.Filename),
		logging.Error(err))
	return err
}
