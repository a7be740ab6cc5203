package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"prs/internal/rationing/ports"
	dErrors "prs/pkg/domain-errors"
)

const (
	keyPrefix       = "prs:lock:"
	defaultLockTTL  = 10 * time.Second
	retryMinBackoff = 5 * time.Millisecond
	retryMaxBackoff = 100 * time.Millisecond
	releaseTimeout  = time.Second
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every engine instance that talks to the same Redis.
// The TTL bounds how long a crashed holder can block a key.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.Locker = (*Redis)(nil)

type RedisOption func(*Redis)

func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) RedisOption {
	return func(r *Redis) {
		r.logger = logger
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	r := &Redis{client: client, ttl: defaultLockTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()
	backoff := retryMinBackoff

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "lock wait timed out")
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return r.releaser(redisKey, token), nil
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "lock wait timed out")
		case <-timer.C:
		}
		backoff = min(backoff*2, retryMaxBackoff)
	}
}

// releaser runs on its own context so a cancelled caller still frees the key.
func (r *Redis) releaser(redisKey, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err(); err != nil && r.logger != nil {
			r.logger.WarnContext(ctx, "failed to release lock", "key", redisKey, "error", err)
		}
	}
}
