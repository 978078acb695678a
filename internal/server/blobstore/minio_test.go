package blobstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMinioAgainst(t *testing.T, h http.HandlerFunc) *MinioStore {
	t.Helper()

	origRetry := minio.MaxRetry
	minio.MaxRetry = 1
	t.Cleanup(func() { minio.MaxRetry = origRetry })

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts := testOpts
	opts.Endpoint = srv.URL
	s, err := NewMinioStore(opts)
	require.NoError(t, err)
	return s
}

func TestNewMinioStore_InvalidEndpoint(t *testing.T) {
	opts := testOpts
	opts.Endpoint = "127.0.0.1:9000"
	_, err := NewMinioStore(opts)
	assert.Error(t, err)
}

func TestMinioStore_Presign(t *testing.T) {
	s := newMinioAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("presigning must not hit the server: %s %s", r.Method, r.URL)
	})

	target, err := s.GenerateUploadTarget(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(target.BlobID, "uploads/"))

	u, err := url.Parse(target.URL)
	require.NoError(t, err)
	assert.Equal(t, "/drivekeeper/"+target.BlobID, u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))

	get, err := s.PresignGet(context.Background(), target.BlobID)
	require.NoError(t, err)
	gu, err := url.Parse(get)
	require.NoError(t, err)
	assert.Equal(t, "300", gu.Query().Get("X-Amz-Expires"))
}

func TestMinioStore_Delete(t *testing.T) {
	var gotPath, gotMethod string
	s := newMinioAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, s.Delete(context.Background(), "uploads/b1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/drivekeeper/uploads/b1", gotPath)
}

func TestMinioStore_Delete_NoSuchKey(t *testing.T) {
	s := newMinioAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>gone</Message></Error>`))
	})

	err := s.Delete(context.Background(), "uploads/b1")
	assert.ErrorIs(t, err, common.ErrorBlobNotFound)
}

func TestMinioStore_Delete_Forbidden(t *testing.T) {
	s := newMinioAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>no</Message></Error>`))
	})

	err := s.Delete(context.Background(), "uploads/b1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrTransient)
	assert.NotErrorIs(t, err, common.ErrorBlobNotFound)
}

func TestClassifyMinioError(t *testing.T) {
	err := classifyMinioError(minio.ErrorResponse{Code: "SlowDown", StatusCode: http.StatusServiceUnavailable})
	assert.ErrorIs(t, err, common.ErrTransient)

	err = classifyMinioError(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound})
	assert.ErrorIs(t, err, common.ErrorBlobNotFound)
}
