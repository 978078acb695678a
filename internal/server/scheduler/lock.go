package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/redis/go-redis/v9"
)

// Locker grants exclusive purge runs. Release must be called once the run
// ends; ok is false when another holder owns the lock.
type Locker interface {
	TryLock(ctx context.Context, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// LocalLocker serializes runs within one process.
type LocalLocker struct {
	mu sync.Mutex
}

func (l *LocalLocker) TryLock(context.Context, time.Duration) (func(context.Context) error, bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.mu.Unlock()
		return nil
	}, true, nil
}

type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another replica is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker serializes runs across replicas sharing one Redis.
type RedisLocker struct {
	client redisClient
	key    string
}

func NewRedisLocker(client redisClient) *RedisLocker {
	return &RedisLocker{client: client, key: common.PurgeLockKey}
}

func (l *RedisLocker) TryLock(ctx context.Context, ttl time.Duration) (func(context.Context) error, bool, error) {
	token, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, false, fmt.Errorf("lock token: %w", err)
	}

	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis release: %w", err)
		}
		return nil
	}
	return release, true, nil
}
