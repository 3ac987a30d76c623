package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type countingObserver struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{hits: map[string]int{}, misses: map[string]int{}}
}

func (o *countingObserver) CacheHit(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits[op]++
}

func (o *countingObserver) CacheMiss(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses[op]++
}

func newTestCache(clock *fakeClock, obs Observer) (*Cache, *Memory) {
	mem := NewMemory()
	return New(mem, zerolog.Nop(), WithClock(clock.now), WithObserver(obs)), mem
}

func TestKey(t *testing.T) {
	assert.Equal(t, "market.fetch|1y|SMH,SPY", Key("market.fetch", "1y", "SMH,SPY"))
	assert.Equal(t, "macro", Key("macro"))
	assert.Equal(t, "market.fetch", opOf("market.fetch|1y|SMH"))
}

func TestGetOrFetch_ServesLiveEntry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	obs := newCountingObserver()
	c, _ := newTestCache(clock, obs)

	calls := 0
	fetch := func(context.Context) (map[string][]float64, error) {
		calls++
		return map[string][]float64{"SMH": {1, 2, 3}}, nil
	}

	key := Key("market.fetch", "1y", "SMH")
	v1, err := GetOrFetch(context.Background(), c, key, 5*time.Minute, fetch)
	require.NoError(t, err)
	clock.advance(4 * time.Minute)
	v2, err := GetOrFetch(context.Background(), c, key, 5*time.Minute, fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, obs.hits["market.fetch"])
	assert.Equal(t, 1, obs.misses["market.fetch"])
}

func TestGetOrFetch_RefetchesAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	c, _ := newTestCache(clock, nil)

	n := 0
	fetch := func(context.Context) (int, error) {
		n++
		return n, nil
	}

	v, err := GetOrFetch(context.Background(), c, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.advance(time.Minute)
	v, err = GetOrFetch(context.Background(), c, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "age == ttl is no longer live")
}

func TestGetOrFetch_PerCallTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	c, _ := newTestCache(clock, nil)

	n := 0
	fetch := func(context.Context) (int, error) {
		n++
		return n, nil
	}
	_, err := GetOrFetch(context.Background(), c, "k", time.Hour, fetch)
	require.NoError(t, err)
	clock.advance(2 * time.Minute)

	v, err := GetOrFetch(context.Background(), c, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestGetOrFetch_ErrorsAreNotCached(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	c, mem := newTestCache(clock, nil)
	boom := errors.New("upstream down")

	_, err := GetOrFetch(context.Background(), c, "k", time.Minute, func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, mem.Len())

	v, err := GetOrFetch(context.Background(), c, "k", time.Minute, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestGetOrFetch_FailedRefreshKeepsPreviousEntry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	c, _ := newTestCache(clock, nil)

	_, err := GetOrFetch(context.Background(), c, "k", time.Hour, func(context.Context) (string, error) {
		return "first", nil
	})
	require.NoError(t, err)

	// A shorter ttl forces a refresh which fails; the stored entry survives
	// and is served again to callers whose ttl still covers it.
	clock.advance(time.Minute)
	_, err = GetOrFetch(context.Background(), c, "k", 30*time.Second, func(context.Context) (string, error) {
		return "", errors.New("boom")
	})
	require.Error(t, err)

	v, err := GetOrFetch(context.Background(), c, "k", time.Hour, func(context.Context) (string, error) {
		return "second", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestGetOrFetch_ConcurrentMissesFetchAtMostTwice(t *testing.T) {
	c := New(NewMemory(), zerolog.Nop())
	var calls int32
	start := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-start
		return "same", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := GetOrFetch(context.Background(), c, "k", time.Minute, fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(start)
	wg.Wait()

	n := atomic.LoadInt32(&calls)
	assert.GreaterOrEqual(t, n, int32(1))
	assert.LessOrEqual(t, n, int32(2))
	assert.Equal(t, results[0], results[1])
}

func TestClearAndSweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	c, mem := newTestCache(clock, nil)
	ctx := context.Background()

	for _, k := range []string{"a", "b"} {
		_, err := GetOrFetch(ctx, c, k, time.Minute, func(context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)
	}
	_, err := GetOrFetch(ctx, c, "c", time.Hour, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	require.Equal(t, 3, mem.Len())

	clock.advance(2 * time.Minute)
	assert.Equal(t, 2, c.Sweep())
	assert.Equal(t, 1, mem.Len())

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, mem.Len())
}
