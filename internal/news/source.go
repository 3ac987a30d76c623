package news

import (
	"context"

	"LayerSentinel/internal/model"
)

// FeedSource is the primary per-ticker news feed.
type FeedSource interface {
	Fetch(ctx context.Context, ticker string) ([]model.RawNewsItem, error)
	Name() string
}

// SearchSource is a keyword search over a syndication feed.
type SearchSource interface {
	Search(ctx context.Context, query string) ([]model.RawNewsItem, error)
	Name() string
}
