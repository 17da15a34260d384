package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// AttemptLocker is a cross-instance lock on SET NX with a TTL. It implements app.AttemptLocker.
type AttemptLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewAttemptLocker(client *redis.Client, ttl time.Duration) *AttemptLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &AttemptLocker{client: client, ttl: ttl, retry: 25 * time.Millisecond}
}

// Lock retries until the key is acquired or ctx is done.
func (l *AttemptLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.key(key)
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return func() {
		// release on a fresh context so a cancelled request still frees the key
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := unlockScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil {
			log.Warn().Err(err).Str("lock", lockKey).Msg("release attempt lock")
		}
	}, nil
}

func (l *AttemptLocker) key(key string) string {
	return "quiz:lock:" + key
}
