package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/casamapa/casamapa/internal/core/ports"
)

const scanBatchSize = 500

var (
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Cache hits by tier",
		},
		[]string{"tier"},
	)
	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Lookups that missed every tier",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
}

// Manager fans reads and writes across a pool of redundant backends with
// ordered fallback to an in-process store. Backends are independent: writes
// are best-effort multi-writes that may diverge under partial failure, and
// reads take the first healthy hit without reconciliation. Availability is
// deliberately chosen over consistency; do not upgrade this to quorum
// semantics.
type Manager struct {
	backends []ports.KeyValueBackend
	fallback *FallbackStore
	logger   *logrus.Logger
	sf       *singleflight.Group
}

// Option tunes optional Manager behavior.
type Option func(*Manager)

// WithSingleFlight coalesces concurrent GetOrSet misses on the same key
// into one fetch. Off by default: concurrent misses each invoking the
// fetch independently is the documented baseline behavior.
func WithSingleFlight() Option {
	return func(m *Manager) { m.sf = &singleflight.Group{} }
}

// NewManager builds a cache over the given pool. An empty pool is valid
// and runs every operation against the fallback store.
func NewManager(backends []ports.KeyValueBackend, logger *logrus.Logger, opts ...Option) *Manager {
	m := &Manager{
		backends: backends,
		fallback: NewFallbackStore(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fallback exposes the in-process tier for stats and tests.
func (m *Manager) Fallback() *FallbackStore { return m.fallback }

func (m *Manager) healthyBackends() []ports.KeyValueBackend {
	var healthy []ports.KeyValueBackend
	for _, b := range m.backends {
		if b.Healthy() {
			healthy = append(healthy, b)
		}
	}
	return healthy
}

// Available reports whether at least one backend is reachable.
func (m *Manager) Available() bool { return len(m.healthyBackends()) > 0 }

// Get tries healthy backends in configured order and returns the first
// non-absent hit, decoded into dest. Once one backend hits, the rest are
// not consulted. With all backends missing or unhealthy the fallback store
// answers. ok=false is a normal miss, never an error.
func (m *Manager) Get(ctx context.Context, key string, dest any) (bool, error) {
	for _, b := range m.healthyBackends() {
		data, ok, err := b.Get(ctx, key)
		if err != nil {
			m.warn(b, err, "cache: get failed, trying next backend")
			continue
		}
		if !ok {
			continue
		}
		if err := json.Unmarshal(data, dest); err != nil {
			m.warn(b, err, "cache: corrupt entry, trying next backend")
			continue
		}
		cacheHits.WithLabelValues("backend").Inc()
		return true, nil
	}

	if data, ok := m.fallback.Get(key); ok {
		if err := json.Unmarshal(data, dest); err == nil {
			cacheHits.WithLabelValues("fallback").Inc()
			return true, nil
		}
		m.fallback.Del(key)
	}
	cacheMisses.Inc()
	return false, nil
}

// Set writes to every healthy backend concurrently with best-effort
// semantics: per-backend failures are logged, never propagated, and
// partial success is not rolled back. With zero healthy backends only the
// fallback store is written.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", key, err)
	}

	healthy := m.healthyBackends()
	if len(healthy) == 0 {
		m.fallback.Set(key, data, ttl)
		return nil
	}

	var wg sync.WaitGroup
	for _, b := range healthy {
		wg.Add(1)
		go func(b ports.KeyValueBackend) {
			defer wg.Done()
			if err := b.Set(ctx, key, data, ttl); err != nil {
				m.warn(b, err, "cache: set failed on backend")
			}
		}(b)
	}
	wg.Wait()
	return nil
}

// Del removes the key from every healthy backend and always clears the
// fallback entry, so a backend dropping out later cannot resurrect stale
// local state for this key.
func (m *Manager) Del(ctx context.Context, key string) error {
	var wg sync.WaitGroup
	for _, b := range m.healthyBackends() {
		wg.Add(1)
		go func(b ports.KeyValueBackend) {
			defer wg.Done()
			if err := b.Del(ctx, key); err != nil {
				m.warn(b, err, "cache: del failed on backend")
			}
		}(b)
	}
	wg.Wait()
	m.fallback.Del(key)
	return nil
}

// Incr tries backends in order and returns the first successful result.
// Counters are never fanned out: double-counting across backends would
// inflate every quota. The TTL is attached on the same backend, only when
// the increment created the key. The fallback counter is used only when
// every backend attempt fails.
func (m *Manager) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	for _, b := range m.healthyBackends() {
		count, err := b.Incr(ctx, key)
		if err != nil {
			m.warn(b, err, "cache: incr failed, trying next backend")
			continue
		}
		if count == 1 {
			if err := b.Expire(ctx, key, ttl); err != nil {
				m.warn(b, err, "cache: failed to attach counter ttl")
			}
		}
		return count, nil
	}
	return m.fallback.Incr(key, ttl), nil
}

// ClearPattern scan-and-deletes matching keys in batches on every healthy
// backend, then flushes the entire fallback store regardless of pattern.
func (m *Manager) ClearPattern(ctx context.Context, pattern string) error {
	for _, b := range m.healthyBackends() {
		keys, err := b.ScanKeys(ctx, pattern, scanBatchSize)
		if err != nil {
			m.warn(b, err, "cache: pattern scan failed on backend")
		}
		for len(keys) > 0 {
			batch := keys
			if len(batch) > scanBatchSize {
				batch = keys[:scanBatchSize]
			}
			keys = keys[len(batch):]
			if err := b.Del(ctx, batch...); err != nil {
				m.warn(b, err, "cache: batch delete failed on backend")
				break
			}
		}
	}
	m.fallback.Flush()
	return nil
}

// GetOrSet is the read-through path wrapping a slow fetch. Fetch errors
// propagate verbatim and are not cached; nil results are returned but not
// stored.
func (m *Manager) GetOrSet(ctx context.Context, key string, fetch ports.FetchFunc, ttl time.Duration) (any, error) {
	var cached any
	if ok, _ := m.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	if m.sf == nil {
		return m.fetchAndStore(ctx, key, fetch, ttl)
	}
	v, err, _ := m.sf.Do(key, func() (any, error) {
		var again any
		if ok, _ := m.Get(ctx, key, &again); ok {
			return again, nil
		}
		return m.fetchAndStore(ctx, key, fetch, ttl)
	})
	return v, err
}

func (m *Manager) fetchAndStore(ctx context.Context, key string, fetch ports.FetchFunc, ttl time.Duration) (any, error) {
	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if value != nil {
		if err := m.Set(ctx, key, value, ttl); err != nil && m.logger != nil {
			m.logger.WithError(err).WithField("key", key).Warn("cache: failed to store fetched value")
		}
	}
	return value, nil
}

// Stats summarizes the tier currently serving traffic.
type Stats struct {
	Type            string `json:"type"`
	Connected       bool   `json:"connected"`
	Instances       int    `json:"instances"`
	HealthyCount    int    `json:"healthy"`
	FallbackEntries int    `json:"fallbackEntries"`
}

func (m *Manager) Stats() Stats {
	healthy := m.healthyBackends()
	s := Stats{
		Instances:       len(m.backends),
		HealthyCount:    len(healthy),
		FallbackEntries: m.fallback.Len(),
	}
	if len(healthy) > 0 {
		s.Type = "redis"
		s.Connected = true
	} else {
		s.Type = "memory"
	}
	return s
}

func (m *Manager) warn(b ports.KeyValueBackend, err error, msg string) {
	if m.logger != nil {
		m.logger.WithField("backend", b.Name()).WithError(err).Warn(msg)
	}
}
