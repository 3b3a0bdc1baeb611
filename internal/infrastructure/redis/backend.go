package redis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/casamapa/casamapa/configs"
)

// Backend wraps one Redis instance as a pool member. A backend that cannot
// connect is reported unhealthy and skipped; it keeps probing in the
// background and rejoins the pool once the instance is reachable again.
type Backend struct {
	name    string
	client  *redis.Client
	logger  *logrus.Logger
	healthy atomic.Bool
	stop    chan struct{}
}

// NewBackend builds a backend from a redis:// URL. URL parse errors are the
// only construction failures; connection problems surface as unhealthy.
func NewBackend(url string, cfg *configs.CacheConfig, logger *logrus.Logger) (*Backend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url %q: %w", url, err)
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 3 * time.Second

	b := &Backend{
		name:   opts.Addr,
		client: redis.NewClient(opts),
		logger: logger,
		stop:   make(chan struct{}),
	}
	go b.pingLoop(cfg.PingPeriod)
	return b, nil
}

func (b *Backend) Name() string { return b.name }

// Connect pings the instance once. Failure marks the backend unhealthy but
// is not fatal; the ping loop keeps retrying.
func (b *Backend) Connect(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		b.healthy.Store(false)
		if b.logger != nil {
			b.logger.WithField("backend", b.name).WithError(err).Warn("redis: connection failed, backend marked unhealthy")
		}
		return fmt.Errorf("failed to connect to redis backend %s: %w", b.name, err)
	}
	b.healthy.Store(true)
	if b.logger != nil {
		b.logger.WithField("backend", b.name).Info("redis: backend connected")
	}
	return nil
}

func (b *Backend) pingLoop(period time.Duration) {
	if period <= 0 {
		period = 15 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := b.client.Ping(ctx).Err()
			cancel()
			was := b.healthy.Swap(err == nil)
			if b.logger == nil || was == (err == nil) {
				continue
			}
			if err != nil {
				b.logger.WithField("backend", b.name).WithError(err).Warn("redis: backend became unhealthy")
			} else {
				b.logger.WithField("backend", b.name).Info("redis: backend recovered")
			}
		}
	}
}

func (b *Backend) Healthy() bool { return b.healthy.Load() }

func (b *Backend) Close() error {
	close(b.stop)
	return b.client.Close()
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

func (b *Backend) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.client.Del(ctx, keys...).Err()
}

func (b *Backend) Incr(ctx context.Context, key string) (int64, error) {
	return b.client.Incr(ctx, key).Result()
}

func (b *Backend) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return b.client.Expire(ctx, key, ttl).Err()
}

// ScanKeys collects keys matching pattern using cursor batches instead of a
// single blocking KEYS call.
func (b *Backend) ScanKeys(ctx context.Context, pattern string, batchSize int64) ([]string, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	var keys []string
	var cursor uint64
	for {
		batch, next, err := b.client.Scan(ctx, cursor, pattern, batchSize).Result()
		if err != nil {
			return keys, err
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// Set primitives for presence membership.

func (b *Backend) SetAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return b.client.SAdd(ctx, key, args...).Err()
}

func (b *Backend) SetRemove(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return b.client.SRem(ctx, key, args...).Err()
}

func (b *Backend) SetIsMember(ctx context.Context, key, member string) (bool, error) {
	return b.client.SIsMember(ctx, key, member).Result()
}

func (b *Backend) SetMembers(ctx context.Context, key string) ([]string, error) {
	return b.client.SMembers(ctx, key).Result()
}

// List primitives for message logs (most-recent-first).

func (b *Backend) ListPush(ctx context.Context, key string, value []byte) error {
	return b.client.LPush(ctx, key, value).Err()
}

func (b *Backend) ListTrim(ctx context.Context, key string, start, stop int64) error {
	return b.client.LTrim(ctx, key, start, stop).Err()
}

func (b *Backend) ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := b.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

func (b *Backend) ListLen(ctx context.Context, key string) (int64, error) {
	return b.client.LLen(ctx, key).Result()
}
