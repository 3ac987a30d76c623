package news

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"LayerSentinel/internal/cache"
	"LayerSentinel/internal/model"
)

const (
	// DefaultTTL is how long a tier response stays live in the cache.
	DefaultTTL = 10 * time.Minute

	// DefaultMaxItems is the configured limit when none is given.
	DefaultMaxItems = 5
)

// Tier names the source that produced a Result.
type Tier string

const (
	TierPrimary     Tier = "primary"
	TierSearch      Tier = "search"
	TierPlaceholder Tier = "placeholder"
)

// Result is the outcome of one news request. Live is false only for the
// placeholder tier.
type Result struct {
	Items []model.NewsItem `json:"items"`
	Tier  Tier             `json:"tier"`
	Live  bool             `json:"live"`
}

// TierObserver receives which tier served each request.
type TierObserver interface {
	NewsServed(tier string)
}

// Provider runs the fallback chain. Search may be nil, in which case the
// second tier yields nothing.
type Provider struct {
	Feed    FeedSource
	Search  SearchSource
	Cache   *cache.Cache
	TTL     time.Duration
	Timeout time.Duration
	Metrics TierObserver
	Demo    func(ticker string, maxItems int, now time.Time) []model.NewsItem
	now     func() time.Time
	log     zerolog.Logger
}

// NewProvider creates a Provider with the stock placeholder tier.
func NewProvider(feed FeedSource, search SearchSource, c *cache.Cache, ttl, timeout time.Duration, log zerolog.Logger) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{
		Feed:    feed,
		Search:  search,
		Cache:   c,
		TTL:     ttl,
		Timeout: timeout,
		Demo:    Placeholder,
		now:     time.Now,
		log:     log.With().Str("component", "news").Logger(),
	}
}

// Fetch returns at most maxItems validated items for ticker, newest first.
// Tier 2 runs only when tier 1 yields nothing valid, tier 3 only when both
// live tiers yield nothing. useDemo goes straight to tier 3. Fetch never
// fails; upstream errors are logged and fall through. A non-positive
// maxItems yields no items.
func (p *Provider) Fetch(ctx context.Context, ticker, description string, maxItems int, useDemo bool) Result {
	maxItems = max(maxItems, 0)
	ticker = strings.TrimSpace(ticker)
	log := p.log.With().Str("ticker", ticker).Logger()

	if !useDemo && ticker != "" {
		if items := p.primary(ctx, ticker, log); len(items) > 0 {
			return p.result(items, TierPrimary, true, maxItems)
		}
		log.Warn().Msg("primary feed empty, trying search")

		if items := p.search(ctx, SearchQuery(ticker, description), log); len(items) > 0 {
			return p.result(items, TierSearch, true, maxItems)
		}
		log.Warn().Msg("search feed empty, serving placeholder")
	}

	return p.result(p.Demo(ticker, maxItems, p.now()), TierPlaceholder, false, maxItems)
}

func (p *Provider) primary(ctx context.Context, ticker string, log zerolog.Logger) []model.NewsItem {
	if p.Feed == nil {
		return nil
	}
	key := cache.Key("news.primary", p.Feed.Name(), ticker)
	items, err := cache.GetOrFetch(ctx, p.Cache, key, p.TTL, func(ctx context.Context) ([]model.NewsItem, error) {
		ctx, cancel := p.withTimeout(ctx)
		defer cancel()
		raws, err := p.Feed.Fetch(ctx, ticker)
		if err != nil {
			return nil, err
		}
		return p.validate(raws, p.Feed.Name(), log), nil
	})
	if err != nil {
		log.Warn().Err(err).Str("source", p.Feed.Name()).Msg("primary feed failed")
		return nil
	}
	return items
}

func (p *Provider) search(ctx context.Context, query string, log zerolog.Logger) []model.NewsItem {
	if p.Search == nil {
		log.Debug().Msg("no search source configured")
		return nil
	}
	key := cache.Key("news.search", p.Search.Name(), query)
	items, err := cache.GetOrFetch(ctx, p.Cache, key, p.TTL, func(ctx context.Context) ([]model.NewsItem, error) {
		ctx, cancel := p.withTimeout(ctx)
		defer cancel()
		raws, err := p.Search.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		return p.validate(raws, p.Search.Name(), log), nil
	})
	if err != nil {
		log.Warn().Err(err).Str("source", p.Search.Name()).Str("query", query).Msg("search feed failed")
		return nil
	}
	return items
}

func (p *Provider) validate(raws []model.RawNewsItem, source string, log zerolog.Logger) []model.NewsItem {
	items, dropped := Validate(raws)
	if dropped > 0 {
		log.Debug().Str("source", source).Int("dropped", dropped).Msg("invalid news items dropped")
	}
	return items
}

// result drops anything that fails Valid, whichever tier produced it, and
// truncates to maxItems.
func (p *Provider) result(items []model.NewsItem, tier Tier, live bool, maxItems int) Result {
	kept := make([]model.NewsItem, 0, min(len(items), maxItems))
	for _, it := range items {
		if len(kept) == maxItems {
			break
		}
		if Valid(it) {
			kept = append(kept, it)
		}
	}
	items = kept
	if p.Metrics != nil {
		p.Metrics.NewsServed(string(tier))
	}
	return Result{Items: items, Tier: tier, Live: live}
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Timeout > 0 {
		return context.WithTimeout(ctx, p.Timeout)
	}
	return context.WithCancel(ctx)
}
