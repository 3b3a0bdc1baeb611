package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounter stores fixed-window counters in memory, honoring the TTL
// rule that only the creating increment sets the window.
type fakeCounter struct {
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int64), ttls: make(map[string]time.Duration)}
}

func (f *fakeCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	if f.counts[key] == 1 {
		f.ttls[key] = ttl
	}
	return f.counts[key], nil
}

func (f *fakeCounter) soleKey(t *testing.T) string {
	t.Helper()
	require.Len(t, f.counts, 1)
	for k := range f.counts {
		return k
	}
	return ""
}

func newTestLimiter(counter *fakeCounter, now time.Time) *AbuseLimiterService {
	s := NewAbuseLimiterService(counter, nil, nil)
	s.now = func() time.Time { return now }
	return s
}

func TestDailyCountKeyEmbedsUTCDate(t *testing.T) {
	counter := newFakeCounter()
	// 23:59:30 UTC on the 14th.
	s := newTestLimiter(counter, time.Date(2025, 3, 14, 23, 59, 30, 0, time.UTC))

	count, err := s.DailyCount(context.Background(), "tok-1", "create_note")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	key := counter.soleKey(t)
	assert.Equal(t, "ratelimit:daily:create_note:tok-1:2025-03-14", key)
	assert.Equal(t, 30*time.Second, counter.ttls[key], "window expires at UTC midnight")
}

func TestDailyCountResetsAtMidnight(t *testing.T) {
	counter := newFakeCounter()
	s := newTestLimiter(counter, time.Date(2025, 3, 14, 23, 59, 30, 0, time.UTC))

	ctx := context.Background()
	for i := 0; i < 9; i++ {
		_, err := s.DailyCount(ctx, "tok-1", "create_note")
		require.NoError(t, err)
	}
	count, err := s.DailyCount(ctx, "tok-1", "create_note")
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)

	// One minute later it is the 15th: a different key, a fresh window.
	s.now = func() time.Time { return time.Date(2025, 3, 15, 0, 0, 30, 0, time.UTC) }
	count, err = s.DailyCount(ctx, "tok-1", "create_note")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDailyCountUsesUTCNotLocalTime(t *testing.T) {
	counter := newFakeCounter()
	east := time.FixedZone("UTC+9", 9*3600)
	// Local calendar says the 15th; UTC still says the 14th.
	s := newTestLimiter(counter, time.Date(2025, 3, 15, 3, 0, 0, 0, east))

	_, err := s.DailyCount(context.Background(), "tok-1", "create_note")
	require.NoError(t, err)
	assert.Contains(t, counter.soleKey(t), ":2025-03-14")
}

func TestCountsIsolatedByIdentityAndAction(t *testing.T) {
	counter := newFakeCounter()
	s := newTestLimiter(counter, time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC))

	ctx := context.Background()
	c1, _ := s.DailyCount(ctx, "tok-1", "create_note")
	c2, _ := s.DailyCount(ctx, "tok-2", "create_note")
	c3, _ := s.DailyCount(ctx, "tok-1", "create_comment")
	assert.Equal(t, int64(1), c1)
	assert.Equal(t, int64(1), c2)
	assert.Equal(t, int64(1), c3)
	assert.Len(t, counter.counts, 3)
}

func TestMinuteHourCooldownWindows(t *testing.T) {
	counter := newFakeCounter()
	s := newTestLimiter(counter, time.Now())

	ctx := context.Background()
	_, err := s.MinuteCount(ctx, "tok-1", "post")
	require.NoError(t, err)
	_, err = s.HourCount(ctx, "tok-1", "post")
	require.NoError(t, err)
	_, err = s.CooldownCount(ctx, "tok-1", "post")
	require.NoError(t, err)

	assert.Equal(t, time.Minute, counter.ttls["ratelimit:minute:post:tok-1"])
	assert.Equal(t, time.Hour, counter.ttls["ratelimit:hour:post:tok-1"])
	assert.Equal(t, 5*time.Second, counter.ttls["ratelimit:cooldown:post:tok-1"])
}

func TestCooldownSecondCallIsViolation(t *testing.T) {
	counter := newFakeCounter()
	s := newTestLimiter(counter, time.Now())

	ctx := context.Background()
	count, err := s.CooldownCount(ctx, "tok-1", "post")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "first action in the window is allowed")

	count, err = s.CooldownCount(ctx, "tok-1", "post")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "any count above 1 is the caller's violation signal")
}

func TestDuplicateCountNormalizesContent(t *testing.T) {
	counter := newFakeCounter()
	s := newTestLimiter(counter, time.Now())

	ctx := context.Background()
	c1, err := s.DuplicateCount(ctx, "Hello World", "40.4")
	require.NoError(t, err)
	c2, err := s.DuplicateCount(ctx, "  hello world  ", "40.4")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c1)
	assert.Equal(t, int64(2), c2, "case and surrounding whitespace are not distinct content")

	c3, err := s.DuplicateCount(ctx, "hello world!", "40.4")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c3, "different content counts separately")
	assert.Equal(t, 10*time.Minute, counter.ttls[counter.soleKeyWithCount(2)])
}

func TestDuplicateCountFieldBoundaries(t *testing.T) {
	counter := newFakeCounter()
	s := newTestLimiter(counter, time.Now())

	ctx := context.Background()
	_, err := s.DuplicateCount(ctx, "ab", "c")
	require.NoError(t, err)
	_, err = s.DuplicateCount(ctx, "a", "bc")
	require.NoError(t, err)
	assert.Len(t, counter.counts, 2, "field boundaries are part of the content identity")
}

func TestLimiterFailsOpenOnCounterError(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("redis down")
	s := newTestLimiter(counter, time.Now())

	count, err := s.DailyCount(context.Background(), "tok-1", "create_note")
	assert.Error(t, err)
	assert.Equal(t, int64(0), count)
}

func TestCustomKeyPrefix(t *testing.T) {
	counter := newFakeCounter()
	s := NewAbuseLimiterService(counter, &AbuseLimiterConfig{KeyPrefix: "rl", CooldownSeconds: 3}, nil)

	_, err := s.CooldownCount(context.Background(), "tok-1", "post")
	require.NoError(t, err)
	key := counter.soleKey(t)
	assert.True(t, strings.HasPrefix(key, "rl:cooldown:"), key)
	assert.Equal(t, 3*time.Second, counter.ttls[key])
}

func (f *fakeCounter) soleKeyWithCount(n int64) string {
	for k, c := range f.counts {
		if c == n {
			return k
		}
	}
	return ""
}
