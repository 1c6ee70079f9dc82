package inflight

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL       = 10 * time.Minute
	defaultKeyPrefix = "cohort:inflight:"
)

// releaseScript deletes the key only when it still carries the caller's value.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
if redis.call("EXISTS", KEYS[1]) == 1 then
	return -1
end
return 0
`)

// refreshScript extends the caller's key or sets it again once it lapsed.
var refreshScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if not current then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
end
return -1
`)

// Option applies a configuration option to the redis guard.
type Option func(*redisGuard)

// WithTTL bounds how long a crashed holder keeps a key.
func WithTTL(ttl time.Duration) Option {
	return func(g *redisGuard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces the guard keys.
func WithKeyPrefix(prefix string) Option {
	return func(g *redisGuard) {
		if prefix != "" {
			g.prefix = prefix
		}
	}
}

// redisGuard holds keys with SET NX PX so replicas sharing a redis serialise
// runs between them. Keys expire after ttl.
type redisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisGuard creates a guard backed by client.
func NewRedisGuard(client redis.UniversalClient, opts ...Option) Guard {
	g := &redisGuard{client: client, ttl: defaultTTL, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *redisGuard) Acquire(ctx context.Context, key, holder string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+key, holder, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", key, err)
	}
	return ok, nil
}

func (g *redisGuard) Release(ctx context.Context, key, holder string) error {
	n, err := releaseScript.Run(ctx, g.client, []string{g.prefix + key}, holder).Int()
	if err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	if n < 0 {
		return ErrNotHolder
	}
	return nil
}

func (g *redisGuard) Refresh(ctx context.Context, key, holder string) error {
	n, err := refreshScript.Run(ctx, g.client, []string{g.prefix + key}, holder, g.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("refresh %s: %w", key, err)
	}
	if n < 0 {
		return ErrNotHolder
	}
	return nil
}

func (g *redisGuard) Size() int64 {
	var n int64
	iter := g.client.Scan(context.Background(), 0, g.prefix+"*", 0).Iterator()
	for iter.Next(context.Background()) {
		n++
	}
	return n
}
