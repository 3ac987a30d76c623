package collector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"LayerSentinel/internal/cache"
	"LayerSentinel/internal/model"
)

// DefaultTTL is how long a market pull stays live in the cache.
const DefaultTTL = 5 * time.Minute

// FailureObserver receives per-symbol upstream failures.
type FailureObserver interface {
	FetchFailed(source string)
}

// Provider fetches close series for a set of symbols and fronts the
// upstream with the cache.
type Provider struct {
	Fetcher Fetcher
	Cache   *cache.Cache
	TTL     time.Duration
	Timeout time.Duration
	Metrics FailureObserver
	log     zerolog.Logger
}

// NewProvider creates a Provider. Zero ttl or timeout fall back to defaults.
func NewProvider(fetcher Fetcher, c *cache.Cache, ttl, timeout time.Duration, log zerolog.Logger) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{
		Fetcher: fetcher,
		Cache:   c,
		TTL:     ttl,
		Timeout: timeout,
		log:     log.With().Str("component", "market").Str("source", fetcher.Name()).Logger(),
	}
}

// FetchKey is the cache key of one symbol's series for a period.
func FetchKey(symbol string, period model.Period) string {
	return cache.Key("market.fetch", string(period), symbol)
}

// Fetch returns a series per symbol that produced rows. Symbols without rows
// are absent from the map. Each symbol is cached on its own, so a failed or
// empty symbol is asked again on the next call while its neighbours are
// served from cache. If no symbol produced rows the call fails with ErrNoData.
func (p *Provider) Fetch(ctx context.Context, symbols []string, period model.Period) (map[string]model.PriceSeries, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("market fetch: unsupported period %q", period)
	}
	symbols = normalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("market fetch: %w: no symbols requested", ErrNoData)
	}

	out := make(map[string]model.PriceSeries, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		points, err := cache.GetOrFetch(ctx, p.Cache, FetchKey(sym, period), p.TTL,
			func(ctx context.Context) ([]model.PricePoint, error) {
				return p.fetchSymbol(ctx, sym, period)
			})
		if err != nil {
			continue
		}
		out[sym] = model.PriceSeries{Symbol: sym, Points: points}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("market fetch %s: %w", strings.Join(symbols, ","), ErrNoData)
	}
	p.log.Debug().Int("requested", len(symbols)).Int("returned", len(out)).Msg("market pull")
	return out, nil
}

// fetchSymbol reports upstream failures and empty responses as errors so
// neither is cached.
func (p *Provider) fetchSymbol(ctx context.Context, sym string, period model.Period) ([]model.PricePoint, error) {
	points, err := p.fetchOne(ctx, sym, period)
	if err != nil {
		p.log.Warn().Err(err).Str("symbol", sym).Msg("fetch failed")
		if p.Metrics != nil {
			p.Metrics.FetchFailed(p.Fetcher.Name())
		}
		return nil, err
	}
	if len(points) == 0 {
		p.log.Debug().Str("symbol", sym).Msg("no rows")
		return nil, fmt.Errorf("%s: %w", sym, ErrNoData)
	}
	return points, nil
}

func (p *Provider) fetchOne(ctx context.Context, symbol string, period model.Period) ([]model.PricePoint, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	return p.Fetcher.FetchCloses(ctx, symbol, period)
}

// normalizeSymbols trims, de-duplicates and sorts.
func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
