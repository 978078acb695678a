package blobstore

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/dmitrijs2005/drivekeeper/internal/logging"
	"github.com/sethvargo/go-retry"
)

// RetryingStore retries deletes that fail with common.ErrTransient using
// exponential backoff. Presigning is local computation and is not retried.
type RetryingStore struct {
	Store
	maxRetries uint64
	base       time.Duration
	log        logging.Logger
}

func NewRetryingStore(inner Store, maxRetries uint64, base time.Duration, log logging.Logger) *RetryingStore {
	return &RetryingStore{Store: inner, maxRetries: maxRetries, base: base, log: log.With("module", "blobstore")}
}

func (s *RetryingStore) Delete(ctx context.Context, blobID string) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.base))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := s.Store.Delete(ctx, blobID)
		if err != nil && errors.Is(err, common.ErrTransient) {
			s.log.Warn(ctx, "blob delete failed, retrying", "blob_id", blobID, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}
