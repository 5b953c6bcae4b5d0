package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// MinIOUploader streams files into an S3-compatible bucket. Objects are
// keyed library/collection/filename so the remote layout mirrors the
// catalog hierarchy.
type MinIOUploader struct {
	client    *minio.Client
	bucket    string
	chunkSize uint64
	logger    *slog.Logger
}

// NewMinIOUploader builds the client and ensures the bucket exists.
func NewMinIOUploader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*MinIOUploader, error) {
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "connect", "create client", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Storage.Bucket)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "storage", "connect", "check bucket", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Storage.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "storage", "connect", "create bucket", err)
		}
	}

	return &MinIOUploader{
		client:    client,
		bucket:    cfg.Storage.Bucket,
		chunkSize: uint64(cfg.Storage.ChunkSizeMiB) << 20,
		logger:    logging.NewComponentLogger(logger, "storage"),
	}, nil
}

// Upload streams the file with a counting reader so progress callbacks
// fire as bytes leave the machine.
func (u *MinIOUploader) Upload(ctx context.Context, req Request, onProgress func(Progress)) (Info, error) {
	file, err := os.Open(req.LocalPath)
	if err != nil {
		return Info{}, services.Wrap(services.ErrValidation, "storage", "upload", "open source file", err)
	}
	defer file.Close()

	size := req.SizeBytes
	if size <= 0 {
		stat, err := file.Stat()
		if err != nil {
			return Info{}, services.Wrap(services.ErrValidation, "storage", "upload", "stat source file", err)
		}
		size = stat.Size()
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}

	key := objectKey(req)
	reader := newCountingReader(file, size, onProgress)

	info, err := u.client.PutObject(ctx, u.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
		PartSize:    u.chunkSize,
	})
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && services.IsUserAbort(cause) {
			return Info{}, cause
		}
		return Info{}, services.Wrap(services.ErrTransient, "storage", "upload", "put object", err)
	}

	u.logger.Info("object uploaded",
		logging.String(logging.FieldFilename, req.Filename),
		slog.String("key", key),
		slog.Int64("bytes", info.Size))

	return Info{RemoteID: key, SizeBytes: info.Size}, nil
}

func objectKey(req Request) string {
	return path.Join(req.LibraryID, req.CollectionID, req.Filename)
}

// countingReader reports cumulative bytes read at a throttled interval
// and once more at the end of the stream.
type countingReader struct {
	inner      io.Reader
	total      int64
	read       int64
	lastReport time.Time
	onProgress func(Progress)
}

func newCountingReader(inner io.Reader, total int64, onProgress func(Progress)) *countingReader {
	return &countingReader{inner: inner, total: total, onProgress: onProgress}
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	r.read += int64(n)
	if r.onProgress != nil {
		now := time.Now()
		if now.Sub(r.lastReport) >= 200*time.Millisecond || r.read >= r.total {
			r.lastReport = now
			r.onProgress(Progress{UploadedBytes: r.read, TotalBytes: r.total})
		}
	}
	return n, err
}
