package cache

import (
	"sync"
	"time"
)

type fallbackEntry struct {
	data      []byte
	writtenAt time.Time
	ttl       time.Duration
}

type fallbackCounter struct {
	count     int64
	expiresAt time.Time
}

// FallbackStore is the process-local last resort used only when zero
// backends are healthy. Expired entries are evicted lazily on read; there
// is no background sweep. It is not shared across instances, which is
// acceptable because it only ever serves a degraded, cache-miss-tolerant
// path.
type FallbackStore struct {
	mu       sync.Mutex
	entries  map[string]fallbackEntry
	counters map[string]fallbackCounter
	now      func() time.Time
}

func NewFallbackStore() *FallbackStore {
	return &FallbackStore{
		entries:  make(map[string]fallbackEntry),
		counters: make(map[string]fallbackCounter),
		now:      time.Now,
	}
}

// Get returns the stored bytes, lazily evicting the entry once its TTL has
// elapsed.
func (s *FallbackStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().Sub(entry.writtenAt) > entry.ttl {
		delete(s.entries, key)
		return nil, false
	}
	return entry.data, true
}

func (s *FallbackStore) Set(key string, data []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = fallbackEntry{data: data, writtenAt: s.now(), ttl: ttl}
}

func (s *FallbackStore) Del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Incr creates the counter at 1 with the TTL fixed at window creation.
// Later increments within the window do not refresh the TTL; once it
// elapses the next call observes a fresh window starting at 1.
func (s *FallbackStore) Incr(key string, ttl time.Duration) int64 {
	if ttl < time.Second {
		ttl = time.Second
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	c, ok := s.counters[key]
	if !ok || !c.expiresAt.After(now) {
		s.counters[key] = fallbackCounter{count: 1, expiresAt: now.Add(ttl)}
		return 1
	}
	c.count++
	s.counters[key] = c
	return c.count
}

// Flush drops every entry and counter. ClearPattern intentionally ignores
// the pattern for the fallback tier; a coarse flush is acceptable because
// the store is only active while all backends are down.
func (s *FallbackStore) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]fallbackEntry)
	s.counters = make(map[string]fallbackCounter)
}

// Len reports the number of live cache entries, for stats.
func (s *FallbackStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
