package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	var l LocalLocker
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(ctx))
	_, ok, _ = l.TryLock(ctx, time.Minute)
	assert.True(t, ok)
}

type fakeRedis struct {
	setOK   bool
	setErr  error
	evalErr error

	key      string
	value    interface{}
	ttl      time.Duration
	evalKeys []string
	evalArgs []interface{}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	f.key, f.value, f.ttl = key, value, ttl
	return redis.NewBoolResult(f.setOK, f.setErr)
}

func (f *fakeRedis) Eval(_ context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.evalKeys, f.evalArgs = keys, args
	return redis.NewCmdResult(int64(1), f.evalErr)
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	f := &fakeRedis{setOK: true}
	l := NewRedisLocker(f)
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, 90*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, common.PurgeLockKey, f.key)
	assert.Equal(t, 90*time.Second, f.ttl)

	require.NoError(t, release(ctx))
	assert.Equal(t, []string{common.PurgeLockKey}, f.evalKeys)
	require.Len(t, f.evalArgs, 1)
	assert.Equal(t, f.value, f.evalArgs[0], "release must present the token it locked with")
}

func TestRedisLocker_Held(t *testing.T) {
	l := NewRedisLocker(&fakeRedis{setOK: false})
	release, ok, err := l.TryLock(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, release)
}

func TestRedisLocker_Errors(t *testing.T) {
	l := NewRedisLocker(&fakeRedis{setErr: errors.New("conn refused")})
	_, _, err := l.TryLock(context.Background(), time.Minute)
	assert.Error(t, err)

	f := &fakeRedis{setOK: true, evalErr: errors.New("timeout")}
	release, ok, err := NewRedisLocker(f).TryLock(context.Background(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Error(t, release(context.Background()))

	f = &fakeRedis{setOK: true, evalErr: redis.Nil}
	release, _, err = NewRedisLocker(f).TryLock(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}
