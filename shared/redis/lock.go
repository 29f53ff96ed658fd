package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-holder lease on a Redis key (SET NX PX). The lease expires
// after ttl so a crashed holder cannot block others forever.
type Lock struct {
	client       *goredis.Client
	key          string
	ttl          time.Duration
	pollInterval time.Duration
}

func NewLock(client *goredis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{client: client, key: key, ttl: ttl, pollInterval: 100 * time.Millisecond}
}

// Acquire blocks until the lease is obtained or ctx is done. The returned
// function releases the lease; it is safe to call after expiry.
func (l *Lock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
		}
		if ok {
			return func() {
				// The caller's context may already be cancelled.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(fmt.Errorf("timed out waiting for lock %s", l.key), ctx.Err())
		case <-ticker.C:
		}
	}
}
