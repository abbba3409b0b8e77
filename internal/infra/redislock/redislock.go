// Package redislock implements a per-key lock on Redis so several Stride
// instances sharing one database serialize completions for the same user.
//
// A lock is a key set with SET NX PX holding a random token. Release deletes
// the key only if it still holds that token, so a holder whose lease expired
// can never release someone else's lock.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds the Redis connection and lease settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration

	// RetryInterval is the polling period while a key is held elsewhere.
	RetryInterval time.Duration

	// Prefix namespaces lock keys.
	Prefix string
}

// DefaultConfig returns settings for a local Redis.
func DefaultConfig() Config {
	return Config{
		Addr:          "localhost:6379",
		TTL:           10 * time.Second,
		RetryInterval: 25 * time.Millisecond,
		Prefix:        "stride:lock:",
	}
}

// ErrNotHeld is logged when a release finds the lease already gone.
var ErrNotHeld = errors.New("redislock: lock not held")

// releaseScript deletes KEYS[1] only if it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ══════════════════════════════════════════════════════════════════════════════
// LOCKER
// ══════════════════════════════════════════════════════════════════════════════

// Locker hands out Redis-backed per-key locks.
type Locker struct {
	client redis.UniversalClient
	cfg    Config
	logger *slog.Logger
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Locker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return New(client, cfg, logger), nil
}

// New wraps an existing client. Zero config fields take DefaultConfig values.
func New(client redis.UniversalClient, cfg Config, logger *slog.Logger) *Locker {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locker{client: client, cfg: cfg, logger: logger.With("component", "redislock")}
}

// Key returns the Redis key guarding name.
func (l *Locker) Key(name string) string {
	return l.cfg.Prefix + name
}

// Lock polls until the key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, name string) (func(), error) {
	key := l.Key(name)
	token := uuid.NewString()

	ticker := time.NewTicker(l.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) unlocker(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, token) })
	}
}

func (l *Locker) release(key, token string) {
	// The caller's ctx may already be cancelled; release on a fresh one.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	switch {
	case err != nil:
		l.logger.Warn("release failed", "key", key, "error", err)
	case n == 0:
		l.logger.Warn("release skipped", "key", key, "error", ErrNotHeld)
	}
}

// Ping checks Redis connectivity.
func (l *Locker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (l *Locker) Close() error {
	return l.client.Close()
}
