package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLua deletes the lock only while it still holds the caller's token
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// WorkerLock is a Redis lease that keeps a single round worker driving the
// lifecycle when several processes run
type WorkerLock struct {
	rdb     *redis.Client
	release *redis.Script
}

// NewWorkerLock creates a worker lock on the given client
func NewWorkerLock(client *RedisClient) *WorkerLock {
	return &WorkerLock{
		rdb:     client.rdb,
		release: redis.NewScript(releaseLua),
	}
}

// TryAcquire takes the lease for key if it is free. The returned release
// function is safe to call more than once.
func (l *WorkerLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.New().String()
	lockKey := "lock:" + key

	ok, err := l.rdb.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.release.Run(releaseCtx, l.rdb, []string{lockKey}, token).Err()
	}
	return release, true, nil
}
