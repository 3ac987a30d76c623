package model

// RawNewsItem is an upstream record before normalization. Keys vary by
// provider (title/headline, link/url, publisher/source, providerPublishTime).
type RawNewsItem map[string]any

// NewsItem is a validated news entry.
type NewsItem struct {
	Title       string `msgpack:"t" json:"title"`
	Link        string `msgpack:"l" json:"link"`
	Publisher   string `msgpack:"p" json:"publisher"`
	PublishedAt int64  `msgpack:"ts" json:"published_at"`
}

// Classification is the keyword/sentiment relevance tag of a news title.
type Classification string

const (
	ClassStrong  Classification = "STRONG"
	ClassKeyword Classification = "KEYWORD"
	ClassNeutral Classification = "NEUTRAL"
)

// TaggedNewsItem is a news item with its relevance tag.
type TaggedNewsItem struct {
	NewsItem
	Class Classification `json:"class"`
}
