// Package news retrieves, validates and ranks recent news for a ticker
// through a three-tier fallback chain: a primary per-ticker feed, a keyword
// search over a syndication feed, and an offline placeholder set.
package news

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"LayerSentinel/internal/model"
)

// Key fallback order used by Normalize.
var (
	titleKeys     = []string{"title", "headline"}
	linkKeys      = []string{"link", "url"}
	publisherKeys = []string{"publisher", "source"}
)

const (
	timestampKey     = "providerPublishTime"
	unknownPublisher = "Unknown"
)

// Normalize maps a loosely typed upstream record onto a NewsItem. It does
// not validate; see Valid.
func Normalize(raw model.RawNewsItem) model.NewsItem {
	publisher := firstString(raw, publisherKeys)
	if publisher == "" {
		publisher = unknownPublisher
	}
	return model.NewsItem{
		Title:       firstString(raw, titleKeys),
		Link:        firstString(raw, linkKeys),
		Publisher:   publisher,
		PublishedAt: toUnix(raw[timestampKey]),
	}
}

// Valid reports whether an item has a non-blank title and a usable link.
func Valid(item model.NewsItem) bool {
	link := strings.TrimSpace(item.Link)
	return strings.TrimSpace(item.Title) != "" && link != "" && link != "#"
}

// SortItems orders items newest first. Equal timestamps keep input order;
// unknown (0) timestamps sort last.
func SortItems(items []model.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt > items[j].PublishedAt
	})
}

// Validate normalizes every record, drops invalid ones and returns the rest
// sorted. dropped counts the records rejected.
func Validate(raws []model.RawNewsItem) (items []model.NewsItem, dropped int) {
	items = make([]model.NewsItem, 0, len(raws))
	for _, raw := range raws {
		it := Normalize(raw)
		if !Valid(it) {
			dropped++
			continue
		}
		items = append(items, it)
	}
	SortItems(items)
	return items, dropped
}

func firstString(raw model.RawNewsItem, keys []string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func toUnix(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint64:
		return int64(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return n
	case time.Time:
		if t.IsZero() {
			return 0
		}
		return t.Unix()
	default:
		return 0
	}
}
