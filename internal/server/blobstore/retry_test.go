package blobstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/dmitrijs2005/drivekeeper/internal/logging"
	"github.com/stretchr/testify/assert"
)

type flakyStore struct {
	Store
	errs  []error
	calls int
}

func (f *flakyStore) Delete(ctx context.Context, blobID string) error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

var errTransient = fmt.Errorf("%w: 503", common.ErrTransient)

func TestRetryingStore_RetriesTransient(t *testing.T) {
	inner := &flakyStore{errs: []error{errTransient, errTransient}}
	s := NewRetryingStore(inner, 3, time.Millisecond, logging.Nop())

	assert.NoError(t, s.Delete(context.Background(), "b1"))
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingStore_GivesUp(t *testing.T) {
	inner := &flakyStore{errs: []error{errTransient, errTransient, errTransient}}
	s := NewRetryingStore(inner, 1, time.Millisecond, logging.Nop())

	err := s.Delete(context.Background(), "b1")
	assert.ErrorIs(t, err, common.ErrTransient)
	assert.Equal(t, 2, inner.calls)
}

func TestRetryingStore_PermanentErrorsAreNotRetried(t *testing.T) {
	nf := fmt.Errorf("%w: gone", common.ErrorBlobNotFound)
	inner := &flakyStore{errs: []error{nf}}
	s := NewRetryingStore(inner, 5, time.Millisecond, logging.Nop())

	err := s.Delete(context.Background(), "b1")
	assert.ErrorIs(t, err, common.ErrorBlobNotFound)
	assert.Equal(t, 1, inner.calls)

	inner = &flakyStore{errs: []error{errors.New("denied")}}
	s = NewRetryingStore(inner, 5, time.Millisecond, logging.Nop())
	assert.Error(t, s.Delete(context.Background(), "b1"))
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingStore_StopsOnContextCancel(t *testing.T) {
	inner := &flakyStore{errs: []error{errTransient, errTransient, errTransient, errTransient}}
	s := NewRetryingStore(inner, 10, time.Hour, logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Delete(ctx, "b1")
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
