package keylock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockExpired is logged when a release finds the lock already taken over.
var ErrLockExpired = errors.New("keylock: lock expired before release")

const (
	defaultTTL        = 10 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
	defaultPrefix     = "prayerdebt:lock:"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process using the same Redis. A holder
// that dies keeps the key for at most TTL.
type Redis struct {
	client     redis.Cmdable
	ttl        time.Duration
	retryDelay time.Duration
	prefix     string
	onRelease  func(key string, err error)
}

// RedisOption customizes a Redis locker.
type RedisOption func(*Redis)

// WithTTL sets the lock expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithRetryDelay sets the polling interval while waiting for a held key.
func WithRetryDelay(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.retryDelay = d
		}
	}
}

// WithReleaseHook receives release failures, including ErrLockExpired.
func WithReleaseHook(fn func(key string, err error)) RedisOption {
	return func(r *Redis) {
		r.onRelease = fn
	}
}

// NewRedis builds a locker on client.
func NewRedis(client redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{
		client:     client,
		ttl:        defaultTTL,
		retryDelay: defaultRetryDelay,
		prefix:     defaultPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lock polls SET NX PX until the key is acquired or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	if r == nil || r.client == nil {
		return nil, errors.New("keylock: redis client not configured")
	}
	name := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryDelay)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, name, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("keylock: acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// The caller's context may already be cancelled by the time it
		// releases.
		releaseCtx, cancel := context.WithTimeout(context.Background(), r.ttl)
		defer cancel()
		deleted, err := releaseScript.Run(releaseCtx, r.client, []string{name}, token).Int()
		if err == nil && deleted == 0 {
			err = ErrLockExpired
		}
		if err != nil && r.onRelease != nil {
			r.onRelease(key, err)
		}
	}, nil
}
