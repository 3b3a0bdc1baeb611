package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFallbackRoundTrip(t *testing.T) {
	s := NewFallbackStore()
	s.Set("k", []byte(`"v"`), time.Minute)

	data, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte(`"v"`), data)
}

func TestFallbackLazyExpiry(t *testing.T) {
	now := time.Now()
	s := NewFallbackStore()
	s.now = func() time.Time { return now }

	s.Set("k", []byte(`1`), 10*time.Second)

	now = now.Add(9 * time.Second)
	_, ok := s.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = s.Get("k")
	assert.False(t, ok, "entry should be evicted after its TTL")

	// The expired entry is gone, not resurrectable.
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestFallbackIncrSequence(t *testing.T) {
	s := NewFallbackStore()
	assert.Equal(t, int64(1), s.Incr("c", time.Minute))
	assert.Equal(t, int64(2), s.Incr("c", time.Minute))
	assert.Equal(t, int64(3), s.Incr("c", time.Minute))
}

func TestFallbackIncrWindowReset(t *testing.T) {
	now := time.Now()
	s := NewFallbackStore()
	s.now = func() time.Time { return now }

	assert.Equal(t, int64(1), s.Incr("c", 60*time.Second))

	// The TTL is fixed at window creation; a later increment must not
	// extend it.
	now = now.Add(59 * time.Second)
	assert.Equal(t, int64(2), s.Incr("c", 60*time.Second))

	now = now.Add(2 * time.Second)
	assert.Equal(t, int64(1), s.Incr("c", 60*time.Second), "expired window restarts at 1")
}

func TestFallbackFlush(t *testing.T) {
	s := NewFallbackStore()
	s.Set("a", []byte(`1`), time.Minute)
	s.Set("b", []byte(`2`), time.Minute)
	s.Incr("c", time.Minute)

	s.Flush()

	assert.Equal(t, 0, s.Len())
	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, int64(1), s.Incr("c", time.Minute), "counters are flushed too")
}
