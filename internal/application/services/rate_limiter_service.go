package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/casamapa/casamapa/internal/core/ports"
)

// AbuseLimiterService counts actions per opaque client token on top of the
// cache tier's TTL counters. It never decides: callers compare the returned
// counts against their own quotas. Counting failures fail open with a
// logged error so a cache outage cannot lock users out.
type AbuseLimiterService struct {
	counter   ports.Counter
	keyPrefix string
	cooldown  time.Duration
	dupWindow time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

// AbuseLimiterConfig groups configuration parameters for the limiter.
type AbuseLimiterConfig struct {
	KeyPrefix       string
	CooldownSeconds int
	DuplicateWindow time.Duration
}

func NewAbuseLimiterService(counter ports.Counter, cfg *AbuseLimiterConfig, logger *logrus.Logger) *AbuseLimiterService {
	// Apply defaults
	kp := "ratelimit"
	cd := 5 * time.Second
	dw := 10 * time.Minute
	if cfg != nil {
		if cfg.KeyPrefix != "" {
			kp = cfg.KeyPrefix
		}
		if cfg.CooldownSeconds > 0 {
			cd = time.Duration(cfg.CooldownSeconds) * time.Second
		}
		if cfg.DuplicateWindow > 0 {
			dw = cfg.DuplicateWindow
		}
	}
	return &AbuseLimiterService{
		counter:   counter,
		keyPrefix: kp,
		cooldown:  cd,
		dupWindow: dw,
		logger:    logger,
		now:       time.Now,
	}
}

// DailyCount increments the fixed window for the current UTC calendar day.
// The key embeds the date and the TTL is the time remaining until UTC
// midnight, attached at window creation, so the counter self-expires at
// the day boundary no matter when it was first touched.
func (s *AbuseLimiterService) DailyCount(ctx context.Context, identity, action string) (int64, error) {
	now := s.now().UTC()
	key := fmt.Sprintf("%s:daily:%s:%s:%s", s.keyPrefix, action, identity, now.Format("2006-01-02"))
	midnight := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	return s.incr(ctx, key, midnight.Sub(now))
}

// MinuteCount increments a fixed 60-second window.
func (s *AbuseLimiterService) MinuteCount(ctx context.Context, identity, action string) (int64, error) {
	key := fmt.Sprintf("%s:minute:%s:%s", s.keyPrefix, action, identity)
	return s.incr(ctx, key, time.Minute)
}

// HourCount increments a fixed 3600-second window.
func (s *AbuseLimiterService) HourCount(ctx context.Context, identity, action string) (int64, error) {
	key := fmt.Sprintf("%s:hour:%s:%s", s.keyPrefix, action, identity)
	return s.incr(ctx, key, time.Hour)
}

// CooldownCount implements the 1-per-N-seconds gate: any count above 1
// within the window is a violation.
func (s *AbuseLimiterService) CooldownCount(ctx context.Context, identity, action string) (int64, error) {
	key := fmt.Sprintf("%s:cooldown:%s:%s", s.keyPrefix, action, identity)
	return s.incr(ctx, key, s.cooldown)
}

// DuplicateCount increments a window keyed by a stable hash of the
// normalized content fields, flagging repeated identical submissions.
func (s *AbuseLimiterService) DuplicateCount(ctx context.Context, fields ...string) (int64, error) {
	key := fmt.Sprintf("%s:dup:%s", s.keyPrefix, contentHash(fields))
	return s.incr(ctx, key, s.dupWindow)
}

func (s *AbuseLimiterService) incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := s.counter.Incr(ctx, key, ttl)
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("key", key).WithError(err).Warn("abuse limiter: increment failed (fail open)")
		}
		return 0, err
	}
	return count, nil
}

// contentHash normalizes each field (trimmed, lowercased) and hashes the
// joined result so the same content always maps to the same counter.
func contentHash(fields []string) string {
	normalized := make([]string, len(fields))
	for i, f := range fields {
		normalized[i] = strings.ToLower(strings.TrimSpace(f))
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "\x1f")))
	return hex.EncodeToString(sum[:])
}
