package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casamapa/casamapa/internal/core/ports"
)

// fakeBackend is an in-memory ports.KeyValueBackend with per-operation
// failure switches.
type fakeBackend struct {
	mu       sync.Mutex
	name     string
	data     map[string][]byte
	counters map[string]int64
	ttls     map[string]time.Duration
	healthy  bool

	failGet  bool
	failSet  bool
	failIncr bool

	getCalls  int
	setCalls  int
	incrCalls int
}

func newFakeBackend(name string) *fakeBackend {
	return &fakeBackend{
		name:     name,
		data:     make(map[string][]byte),
		counters: make(map[string]int64),
		ttls:     make(map[string]time.Duration),
		healthy:  true,
	}
}

func (f *fakeBackend) Name() string                    { return f.name }
func (f *fakeBackend) Connect(_ context.Context) error { return nil }
func (f *fakeBackend) Healthy() bool                   { return f.healthy }
func (f *fakeBackend) Close() error                    { return nil }

func (f *fakeBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.failGet {
		return nil, false, errors.New("backend down")
	}
	data, ok := f.data[key]
	return data, ok, nil
}

func (f *fakeBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.failSet {
		return errors.New("backend down")
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeBackend) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
		delete(f.counters, k)
	}
	return nil
}

func (f *fakeBackend) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrCalls++
	if f.failIncr {
		return 0, errors.New("backend down")
	}
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeBackend) Expire(_ context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = ttl
	return nil
}

func (f *fakeBackend) ScanKeys(_ context.Context, pattern string, _ int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func newTestManager(backends ...*fakeBackend) *Manager {
	pool := make([]ports.KeyValueBackend, len(backends))
	for i, b := range backends {
		pool[i] = b
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewManager(pool, logger)
}

func TestManagerSetFansOutToAllHealthy(t *testing.T) {
	a, b := newFakeBackend("a"), newFakeBackend("b")
	m := newTestManager(a, b)

	require.NoError(t, m.Set(context.Background(), "k", "v", time.Minute))

	assert.Equal(t, 1, a.setCalls)
	assert.Equal(t, 1, b.setCalls)
	assert.Equal(t, []byte(`"v"`), a.data["k"])
	assert.Equal(t, []byte(`"v"`), b.data["k"])
}

func TestManagerSetSkipsUnhealthy(t *testing.T) {
	a, b := newFakeBackend("a"), newFakeBackend("b")
	b.healthy = false
	m := newTestManager(a, b)

	require.NoError(t, m.Set(context.Background(), "k", "v", time.Minute))

	assert.Equal(t, 1, a.setCalls)
	assert.Equal(t, 0, b.setCalls)
}

func TestManagerGetFirstHitWins(t *testing.T) {
	a, b := newFakeBackend("a"), newFakeBackend("b")
	a.data["k"] = []byte(`"from-a"`)
	b.data["k"] = []byte(`"from-b"`)
	m := newTestManager(a, b)

	var got string
	ok, err := m.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "from-a", got)
	assert.Equal(t, 0, b.getCalls, "later backends must not be consulted after a hit")
}

func TestManagerGetFallsThroughFailures(t *testing.T) {
	a, b := newFakeBackend("a"), newFakeBackend("b")
	a.failGet = true
	b.data["k"] = []byte(`"from-b"`)
	m := newTestManager(a, b)

	var got string
	ok, err := m.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "from-b", got)
}

func TestManagerGetSkipsCorruptEntry(t *testing.T) {
	a, b := newFakeBackend("a"), newFakeBackend("b")
	a.data["k"] = []byte(`{not json`)
	b.data["k"] = []byte(`"good"`)
	m := newTestManager(a, b)

	var got string
	ok, err := m.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "good", got)
}

func TestManagerGetMissIsNotAnError(t *testing.T) {
	m := newTestManager(newFakeBackend("a"))

	var got string
	ok, err := m.Get(context.Background(), "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerFallbackOnlyMode(t *testing.T) {
	m := newTestManager() // empty pool

	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", map[string]int{"n": 7}, time.Minute))

	var got map[string]int
	ok, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, got["n"])

	require.NoError(t, m.Del(ctx, "k"))
	ok, _ = m.Get(ctx, "k", &got)
	assert.False(t, ok)

	assert.Equal(t, "memory", m.Stats().Type)
	assert.False(t, m.Stats().Connected)
}

func TestManagerDelAlwaysClearsFallback(t *testing.T) {
	a := newFakeBackend("a")
	m := newTestManager(a)

	ctx := context.Background()
	m.Fallback().Set("k", []byte(`"stale"`), time.Minute)
	a.data["k"] = []byte(`"live"`)

	require.NoError(t, m.Del(ctx, "k"))

	_, ok := m.Fallback().Get("k")
	assert.False(t, ok)
	_, ok = a.data["k"]
	assert.False(t, ok)
}

func TestManagerIncrNotFannedOut(t *testing.T) {
	a, b := newFakeBackend("a"), newFakeBackend("b")
	m := newTestManager(a, b)

	count, err := m.Incr(context.Background(), "c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, a.incrCalls)
	assert.Equal(t, 0, b.incrCalls, "counters must never be fanned out")
	assert.Equal(t, time.Minute, a.ttls["c"], "ttl attached when the key is created")
}

func TestManagerIncrTTLNotRefreshed(t *testing.T) {
	a := newFakeBackend("a")
	m := newTestManager(a)

	ctx := context.Background()
	_, err := m.Incr(ctx, "c", time.Minute)
	require.NoError(t, err)
	a.ttls["c"] = 5 * time.Second // simulate time left on the window

	count, err := m.Incr(ctx, "c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 5*time.Second, a.ttls["c"], "subsequent increments must not reset the window")
}

func TestManagerIncrFallsBackWhenAllFail(t *testing.T) {
	a := newFakeBackend("a")
	a.failIncr = true
	m := newTestManager(a)

	ctx := context.Background()
	count, err := m.Incr(ctx, "c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = m.Incr(ctx, "c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "fallback counter keeps state across calls")
}

func TestManagerClearPattern(t *testing.T) {
	a := newFakeBackend("a")
	a.data["houses:top:10"] = []byte(`[]`)
	a.data["houses:bounds:1:2:3:4:50"] = []byte(`[]`)
	a.data["emojis:bounds:1:2:3:4:50"] = []byte(`[]`)
	m := newTestManager(a)
	m.Fallback().Set("unrelated", []byte(`1`), time.Minute)

	require.NoError(t, m.ClearPattern(context.Background(), "houses:*"))

	_, ok := a.data["houses:top:10"]
	assert.False(t, ok)
	_, ok = a.data["houses:bounds:1:2:3:4:50"]
	assert.False(t, ok)
	_, ok = a.data["emojis:bounds:1:2:3:4:50"]
	assert.True(t, ok, "non-matching keys survive on the backend")

	assert.Equal(t, 0, m.Fallback().Len(), "the fallback store is flushed whole")
}

func TestManagerGetOrSetFetchesOnceThenServesCached(t *testing.T) {
	m := newTestManager(newFakeBackend("a"))

	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) (any, error) {
		calls++
		return "fetched", nil
	}

	v, err := m.GetOrSet(ctx, "k", fetch, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "fetched", v)

	v, err = m.GetOrSet(ctx, "k", fetch, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "fetched", v)
	assert.Equal(t, 1, calls)
}

func TestManagerGetOrSetErrorNotCached(t *testing.T) {
	m := newTestManager(newFakeBackend("a"))

	ctx := context.Background()
	boom := errors.New("db down")
	calls := 0

	_, err := m.GetOrSet(ctx, "k", func(context.Context) (any, error) {
		calls++
		return nil, boom
	}, time.Minute)
	assert.ErrorIs(t, err, boom)

	v, err := m.GetOrSet(ctx, "k", func(context.Context) (any, error) {
		calls++
		return "recovered", nil
	}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, 2, calls, "a failed fetch must not poison the key")
}

func TestManagerGetOrSetNilNotStored(t *testing.T) {
	a := newFakeBackend("a")
	m := newTestManager(a)

	v, err := m.GetOrSet(context.Background(), "k", func(context.Context) (any, error) {
		return nil, nil
	}, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 0, a.setCalls)
}

func TestManagerGetOrSetSingleFlight(t *testing.T) {
	pool := []ports.KeyValueBackend{newFakeBackend("a")}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	m := NewManager(pool, logger, WithSingleFlight())

	var mu sync.Mutex
	calls := 0
	fetch := func(context.Context) (any, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.GetOrSet(context.Background(), "k", fetch, time.Minute)
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls, "concurrent misses coalesce into one fetch")
}

func TestManagerStats(t *testing.T) {
	a, b := newFakeBackend("a"), newFakeBackend("b")
	b.healthy = false
	m := newTestManager(a, b)
	m.Fallback().Set("x", []byte(`1`), time.Minute)

	s := m.Stats()
	assert.Equal(t, "redis", s.Type)
	assert.True(t, s.Connected)
	assert.Equal(t, 2, s.Instances)
	assert.Equal(t, 1, s.HealthyCount)
	assert.Equal(t, 1, s.FallbackEntries)
}
