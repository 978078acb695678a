package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore uses the native MinIO client. Endpoint is a full URL; its
// scheme selects TLS.
type MinioStore struct {
	client *minio.Client
	opts   Options
}

func NewMinioStore(opts Options) (*MinioStore, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid minio endpoint %q", opts.Endpoint)
	}

	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: u.Scheme == "https",
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &MinioStore{client: client, opts: opts}, nil
}

func (s *MinioStore) GenerateUploadTarget(ctx context.Context) (*models.UploadTarget, error) {
	key := NewBlobID()

	u, err := s.client.PresignedPutObject(ctx, s.opts.Bucket, key, s.opts.UploadValidity)
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	return &models.UploadTarget{BlobID: key, URL: u.String(), ExpiresAt: now().Add(s.opts.UploadValidity)}, nil
}

func (s *MinioStore) PresignGet(ctx context.Context, blobID string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.opts.Bucket, blobID, s.opts.DownloadValidity, nil)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return u.String(), nil
}

func (s *MinioStore) Delete(ctx context.Context, blobID string) error {
	err := s.client.RemoveObject(ctx, s.opts.Bucket, blobID, minio.RemoveObjectOptions{})
	if err != nil {
		return classifyMinioError(err)
	}
	return nil
}

func classifyMinioError(err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", common.ErrorBlobNotFound, err)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", common.ErrTransient, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", common.ErrTransient, err)
	}
	return err
}
