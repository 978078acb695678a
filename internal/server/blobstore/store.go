// Package blobstore mints upload and download URLs for file blobs and deletes
// blobs on purge. Two backends exist: the AWS SDK (any S3-compatible
// endpoint) and the native MinIO client.
package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"github.com/google/uuid"
)

type Store interface {
	// GenerateUploadTarget reserves a fresh blob id and returns a one-time
	// URL the client PUTs the content to.
	GenerateUploadTarget(ctx context.Context) (*models.UploadTarget, error)
	// PresignGet returns a time-limited download URL for blobID.
	PresignGet(ctx context.Context, blobID string) (string, error)
	// Delete removes the blob. A missing blob yields common.ErrorBlobNotFound,
	// an outage common.ErrTransient.
	Delete(ctx context.Context, blobID string) error
}

// Options configure either backend.
type Options struct {
	Bucket           string
	Region           string
	AccessKey        string
	SecretKey        string
	Endpoint         string
	UploadValidity   time.Duration
	DownloadValidity time.Duration
}

var now = time.Now

// NewBlobID returns a storage key that is never reused.
func NewBlobID() string {
	d := now().UTC()
	return fmt.Sprintf("uploads/%04d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

// New builds the backend named by kind ("s3" or "minio").
func New(ctx context.Context, kind string, opts Options) (Store, error) {
	switch kind {
	case "s3", "":
		return NewS3Store(ctx, opts)
	case "minio":
		return NewMinioStore(opts)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", kind)
	}
}
