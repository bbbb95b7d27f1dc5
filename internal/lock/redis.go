package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock that someone else has since taken is left alone.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

const (
	redisKeyPrefix = "clinicbook:lock:"
	releaseTimeout = 2 * time.Second
)

// Redis is a Locker shared by every replica. The TTL bounds how long a
// crashed holder can block a doctor's day.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	log    *zap.Logger
}

func NewRedis(client redis.UniversalClient, ttl, retry time.Duration, log *zap.Logger) *Redis {
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	return &Redis{client: client, ttl: ttl, retry: retry, log: log}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w %q: %v", ErrNotAcquired, key, ctx.Err())
			}
			return nil, fmt.Errorf("acquiring redis lock %q: %w", key, err)
		}
		if ok {
			return r.unlockFunc(redisKey, token), nil
		}

		timer := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w %q: %v", ErrNotAcquired, key, ctx.Err())
		case <-timer.C:
		}
	}
}

func (r *Redis) unlockFunc(redisKey, token string) func() {
	return func() {
		// The caller's context may already be cancelled by now.
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err(); err != nil {
			r.log.Warn("failed to release booking lock; it will expire",
				zap.String("key", redisKey),
				zap.Duration("ttl", r.ttl),
				zap.Error(err),
			)
		}
	}
}
