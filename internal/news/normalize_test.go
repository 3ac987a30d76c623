package news

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"LayerSentinel/internal/model"
)

func TestNormalize_KeyFallbacks(t *testing.T) {
	it := Normalize(model.RawNewsItem{
		"headline":            "Chip stocks rally",
		"url":                 "https://example.com/a",
		"source":              "Benzinga",
		"providerPublishTime": float64(1700000000),
	})
	assert.Equal(t, "Chip stocks rally", it.Title)
	assert.Equal(t, "https://example.com/a", it.Link)
	assert.Equal(t, "Benzinga", it.Publisher)
	assert.Equal(t, int64(1700000000), it.PublishedAt)

	it = Normalize(model.RawNewsItem{
		"title":     "Primary title",
		"headline":  "Secondary",
		"link":      "https://example.com/b",
		"url":       "https://example.com/ignored",
		"publisher": "Reuters",
		"source":    "ignored",
	})
	assert.Equal(t, "Primary title", it.Title)
	assert.Equal(t, "https://example.com/b", it.Link)
	assert.Equal(t, "Reuters", it.Publisher)
	assert.Equal(t, int64(0), it.PublishedAt)
}

func TestNormalize_EmptyPrimaryKeyFallsThrough(t *testing.T) {
	it := Normalize(model.RawNewsItem{"title": "", "headline": "Used", "publisher": ""})
	assert.Equal(t, "Used", it.Title)
	assert.Equal(t, "Unknown", it.Publisher)
}

func TestNormalize_WhitespaceTitleIsKeptAndDropped(t *testing.T) {
	raw := model.RawNewsItem{"title": "  ", "headline": "Not used", "link": "https://a/1"}
	assert.Equal(t, "  ", Normalize(raw).Title)

	items, dropped := Validate([]model.RawNewsItem{raw})
	assert.Empty(t, items)
	assert.Equal(t, 1, dropped)
}

func TestNormalize_TimestampTypes(t *testing.T) {
	ts := time.Unix(1700000123, 0)
	for _, v := range []any{int64(1700000123), 1700000123, "1700000123", ts, float64(1700000123)} {
		assert.Equal(t, int64(1700000123), Normalize(model.RawNewsItem{"providerPublishTime": v}).PublishedAt)
	}
	assert.Equal(t, int64(0), Normalize(model.RawNewsItem{"providerPublishTime": "soon"}).PublishedAt)
	assert.Equal(t, int64(0), Normalize(model.RawNewsItem{"providerPublishTime": []int{1}}).PublishedAt)
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		item model.NewsItem
		want bool
	}{
		{"ok", model.NewsItem{Title: "T", Link: "https://x"}, true},
		{"blank title", model.NewsItem{Title: "   ", Link: "https://x"}, false},
		{"empty link", model.NewsItem{Title: "T"}, false},
		{"blank link", model.NewsItem{Title: "T", Link: "  "}, false},
		{"hash link", model.NewsItem{Title: "T", Link: "#"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.item))
		})
	}
}

func TestSortItems_StableDescending(t *testing.T) {
	items := []model.NewsItem{
		{Title: "a", PublishedAt: 100},
		{Title: "unknown", PublishedAt: 0},
		{Title: "b", PublishedAt: 300},
		{Title: "c", PublishedAt: 100},
	}
	SortItems(items)
	var titles []string
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	assert.Equal(t, []string{"b", "a", "c", "unknown"}, titles)
}

func TestValidate_DropsInvalid(t *testing.T) {
	items, dropped := Validate([]model.RawNewsItem{
		{"title": "Keep", "link": "https://x", "providerPublishTime": int64(5)},
		{"title": "No link"},
		{"title": "Hash", "link": "#"},
		{"title": "Newer", "link": "https://y", "providerPublishTime": int64(9)},
	})
	assert.Equal(t, 2, dropped)
	assert.Len(t, items, 2)
	assert.Equal(t, "Newer", items[0].Title)
	for _, it := range items {
		assert.True(t, Valid(it))
	}
}

func TestPlaceholder(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	items := Placeholder("NVDA", 10, now)
	assert.Len(t, items, PlaceholderCount())
	for _, it := range items {
		assert.True(t, Valid(it))
		assert.Contains(t, it.Title, "[DEMO]")
		assert.Contains(t, it.Title, "NVDA")
		assert.Equal(t, PlaceholderPublisher, it.Publisher)
		assert.NotEqual(t, "#", it.Link)
	}
	assert.Greater(t, items[0].PublishedAt, items[1].PublishedAt)

	assert.Len(t, Placeholder("NVDA", 2, now), 2)
	assert.Empty(t, Placeholder("NVDA", 0, now))
}

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, "NVDA AI chips news", SearchQuery("NVDA", "AI chips"))
	assert.Equal(t, "NVDA stock news", SearchQuery("NVDA", "  "))
}
