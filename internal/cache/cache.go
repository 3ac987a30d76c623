// Package cache fronts every external call with a TTL-checked key/value
// store. Liveness is decided per call: an entry is served while its age is
// below the ttl the caller passes in.
//
// There is no single-flight: two concurrent misses on the same key both run
// their fetch function and the last write wins.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Entry is a stored value together with the moment it was fetched.
type Entry struct {
	Value     []byte        `msgpack:"v"`
	FetchedAt time.Time     `msgpack:"f"`
	TTL       time.Duration `msgpack:"t"`
}

// Store is a cache backend.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	Clear(ctx context.Context) error
}

// Sweeper is implemented by backends that need help dropping expired entries.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Observer receives hit/miss notifications keyed by operation name.
type Observer interface {
	CacheHit(op string)
	CacheMiss(op string)
}

type nopObserver struct{}

func (nopObserver) CacheHit(string)  {}
func (nopObserver) CacheMiss(string) {}

// Cache is the injected caching capability.
type Cache struct {
	store Store
	now   func() time.Time
	obs   Observer
	log   zerolog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithObserver attaches hit/miss reporting.
func WithObserver(obs Observer) Option {
	return func(c *Cache) {
		if obs != nil {
			c.obs = obs
		}
	}
}

// New wraps a backend.
func New(store Store, log zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		now:   time.Now,
		obs:   nopObserver{},
		log:   log.With().Str("component", "cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives a cache key from an operation name and its arguments.
func Key(op string, args ...string) string {
	if len(args) == 0 {
		return op
	}
	return op + "|" + strings.Join(args, "|")
}

func opOf(key string) string {
	if i := strings.IndexByte(key, '|'); i >= 0 {
		return key[:i]
	}
	return key
}

// GetOrFetch returns the live value under key or calls fetch, stores its
// result and returns it. Fetch errors are returned as-is and never stored.
// Backend failures degrade to a plain fetch.
func GetOrFetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	op := opOf(key)

	e, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed, fetching upstream")
	case ok && c.now().Sub(e.FetchedAt) < ttl:
		var v T
		if err := msgpack.Unmarshal(e.Value, &v); err == nil {
			c.obs.CacheHit(op)
			c.log.Debug().Str("key", key).Msg("cache hit")
			return v, nil
		}
		c.log.Warn().Str("key", key).Msg("undecodable cache entry, refetching")
	}

	c.obs.CacheMiss(op)
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	b, err := msgpack.Marshal(v)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("encode cache entry")
		return v, nil
	}
	if err := c.store.Set(ctx, key, Entry{Value: b, FetchedAt: c.now(), TTL: ttl}); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return v, nil
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.log.Info().Msg("cache cleared")
	return nil
}

// Sweep removes expired entries from backends that do not expire on their own.
func (c *Cache) Sweep() int {
	s, ok := c.store.(Sweeper)
	if !ok {
		return 0
	}
	n := s.Sweep(c.now())
	if n > 0 {
		c.log.Debug().Int("removed", n).Msg("cache sweep")
	}
	return n
}
