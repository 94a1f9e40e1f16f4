package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"coop-ledger/internal/domain/apperr"
	"coop-ledger/pkg/id"
)

const unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

// RedisLocker hands out SETNX-based locks that only their holder can release.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisLocker(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl}
}

// Acquire takes the lock for key or fails with a Conflict error when it is
// held elsewhere. The returned func releases it.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	fullKey := l.prefix + key
	token := id.NewID32()

	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, apperr.Conflict("lock for key %s is already held", fullKey)
	}

	return func(ctx context.Context) error {
		res, err := l.client.Eval(ctx, unlockScript, []string{fullKey}, token).Result()
		if err != nil {
			return err
		}
		if res == int64(0) {
			return fmt.Errorf("unlock failed, either lock expired or you're not the lock holder for key %s", fullKey)
		}
		return nil
	}, nil
}
