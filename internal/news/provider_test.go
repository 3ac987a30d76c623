package news

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LayerSentinel/internal/cache"
	"LayerSentinel/internal/model"
)

type fakeFeed struct {
	items []model.RawNewsItem
	err   error
	calls int
}

func (f *fakeFeed) Name() string { return "fake-feed" }

func (f *fakeFeed) Fetch(context.Context, string) ([]model.RawNewsItem, error) {
	f.calls++
	return f.items, f.err
}

type fakeSearch struct {
	items   []model.RawNewsItem
	err     error
	calls   int
	queries []string
}

func (f *fakeSearch) Name() string { return "fake-search" }

func (f *fakeSearch) Search(_ context.Context, q string) ([]model.RawNewsItem, error) {
	f.calls++
	f.queries = append(f.queries, q)
	return f.items, f.err
}

type tierCounter struct {
	mu sync.Mutex
	n  map[string]int
}

func (c *tierCounter) NewsServed(tier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n[tier]++
}

func raw(title, link string, ts int64) model.RawNewsItem {
	return model.RawNewsItem{"title": title, "link": link, "publisher": "Wire", "providerPublishTime": ts}
}

func newTestProvider(feed FeedSource, search SearchSource) (*Provider, *int) {
	c := cache.New(cache.NewMemory(), zerolog.Nop())
	p := NewProvider(feed, search, c, time.Minute, time.Second, zerolog.Nop())
	demoCalls := new(int)
	p.Demo = func(ticker string, maxItems int, now time.Time) []model.NewsItem {
		*demoCalls++
		return Placeholder(ticker, maxItems, now)
	}
	return p, demoCalls
}

func TestProvider_PrimarySuccessSkipsLaterTiers(t *testing.T) {
	feed := &fakeFeed{items: []model.RawNewsItem{
		raw("Old", "https://a/1", 100),
		raw("New", "https://a/2", 200),
		raw("Bad", "#", 300),
	}}
	search := &fakeSearch{}
	p, demoCalls := newTestProvider(feed, search)
	tiers := &tierCounter{n: map[string]int{}}
	p.Metrics = tiers

	res := p.Fetch(context.Background(), "NVDA", "AI chips", 5, false)

	assert.Equal(t, TierPrimary, res.Tier)
	assert.True(t, res.Live)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "New", res.Items[0].Title)
	assert.Equal(t, 1, feed.calls)
	assert.Zero(t, search.calls)
	assert.Zero(t, *demoCalls)
	assert.Equal(t, 1, tiers.n["primary"])
}

func TestProvider_FallsBackToSearch(t *testing.T) {
	feed := &fakeFeed{items: []model.RawNewsItem{raw("", "https://a/1", 1)}}
	search := &fakeSearch{items: []model.RawNewsItem{raw("Grid news", "https://g/1", 10)}}
	p, demoCalls := newTestProvider(feed, search)

	res := p.Fetch(context.Background(), "GRID", "power grid", 5, false)

	assert.Equal(t, TierSearch, res.Tier)
	assert.True(t, res.Live)
	require.Len(t, res.Items, 1)
	assert.Equal(t, []string{"GRID power grid news"}, search.queries)
	assert.Zero(t, *demoCalls)
}

func TestProvider_PrimaryErrorFallsThrough(t *testing.T) {
	feed := &fakeFeed{err: errors.New("timeout")}
	search := &fakeSearch{items: []model.RawNewsItem{raw("Story", "https://g/1", 10)}}
	p, _ := newTestProvider(feed, search)

	res := p.Fetch(context.Background(), "IGV", "", 5, false)
	assert.Equal(t, TierSearch, res.Tier)
	assert.Equal(t, []string{"IGV stock news"}, search.queries)
}

func TestProvider_PlaceholderWhenLiveTiersEmpty(t *testing.T) {
	feed := &fakeFeed{}
	search := &fakeSearch{err: errors.New("blocked")}
	p, demoCalls := newTestProvider(feed, search)

	res := p.Fetch(context.Background(), "SKYY", "cloud", 3, false)

	assert.Equal(t, TierPlaceholder, res.Tier)
	assert.False(t, res.Live)
	assert.Len(t, res.Items, 3)
	assert.Equal(t, 1, *demoCalls)
	for _, it := range res.Items {
		assert.True(t, Valid(it))
	}
}

func TestProvider_MissingSearchIsSoftEmpty(t *testing.T) {
	p, _ := newTestProvider(&fakeFeed{}, nil)
	res := p.Fetch(context.Background(), "NVDA", "", 10, false)
	assert.Equal(t, TierPlaceholder, res.Tier)
	assert.Len(t, res.Items, PlaceholderCount())
}

func TestProvider_UseDemoSkipsLiveTiers(t *testing.T) {
	feed := &fakeFeed{items: []model.RawNewsItem{raw("Live", "https://a/1", 1)}}
	search := &fakeSearch{}
	p, demoCalls := newTestProvider(feed, search)

	res := p.Fetch(context.Background(), "NVDA", "", 5, true)

	assert.Equal(t, TierPlaceholder, res.Tier)
	assert.Zero(t, feed.calls)
	assert.Zero(t, search.calls)
	assert.Equal(t, 1, *demoCalls)
}

func TestProvider_TruncatesToMaxItems(t *testing.T) {
	var items []model.RawNewsItem
	for i := 0; i < 8; i++ {
		items = append(items, raw("Story", "https://a/x", int64(i)))
	}
	p, _ := newTestProvider(&fakeFeed{items: items}, nil)

	res := p.Fetch(context.Background(), "NVDA", "", 3, false)
	require.Len(t, res.Items, 3)
	assert.Equal(t, int64(7), res.Items[0].PublishedAt)

	res = p.Fetch(context.Background(), "NVDA", "", 0, false)
	assert.Empty(t, res.Items)
	assert.Equal(t, TierPrimary, res.Tier)

	res = p.Fetch(context.Background(), "NVDA", "", 0, true)
	assert.Empty(t, res.Items)
	assert.Equal(t, TierPlaceholder, res.Tier)
}

func TestProvider_PlaceholderItemsAreValidated(t *testing.T) {
	p, _ := newTestProvider(nil, nil)
	p.Demo = func(ticker string, maxItems int, now time.Time) []model.NewsItem {
		return []model.NewsItem{
			{Title: "[DEMO] kept", Link: "https://a/1", Publisher: PlaceholderPublisher, PublishedAt: 2},
			{Title: "   ", Link: "https://a/2", Publisher: PlaceholderPublisher, PublishedAt: 1},
			{Title: "[DEMO] no link", Link: "#", Publisher: PlaceholderPublisher},
		}
	}

	res := p.Fetch(context.Background(), "NVDA", "", 5, true)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "[DEMO] kept", res.Items[0].Title)
	assert.False(t, res.Live)
}

func TestProvider_CachesTierResponses(t *testing.T) {
	feed := &fakeFeed{items: []model.RawNewsItem{raw("Cached", "https://a/1", 1)}}
	p, _ := newTestProvider(feed, nil)
	ctx := context.Background()

	first := p.Fetch(ctx, "NVDA", "", 5, false)
	second := p.Fetch(ctx, "NVDA", "", 5, false)

	assert.Equal(t, 1, feed.calls)
	assert.Equal(t, first.Items, second.Items)

	p.Fetch(ctx, "AMD", "", 5, false)
	assert.Equal(t, 2, feed.calls)
}

func TestProvider_FailuresAreNotCached(t *testing.T) {
	feed := &fakeFeed{err: errors.New("down")}
	p, _ := newTestProvider(feed, nil)
	ctx := context.Background()

	p.Fetch(ctx, "NVDA", "", 5, false)
	feed.err = nil
	feed.items = []model.RawNewsItem{raw("Back", "https://a/1", 1)}
	res := p.Fetch(ctx, "NVDA", "", 5, false)

	assert.Equal(t, 2, feed.calls)
	assert.Equal(t, TierPrimary, res.Tier)
}
