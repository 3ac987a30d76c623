package news

import (
	"fmt"
	"net/url"
	"time"

	"LayerSentinel/internal/model"
)

// PlaceholderPublisher marks items that did not come from a live source.
const PlaceholderPublisher = "offline"

var placeholderTemplates = []string{
	"[DEMO] %s: analysts review sector momentum",
	"[DEMO] %s: supply chain update from key partners",
	"[DEMO] %s: institutional flows tracked this week",
	"[DEMO] %s: earnings calendar and guidance preview",
}

// PlaceholderCount is the number of illustrative items available per ticker.
func PlaceholderCount() int { return len(placeholderTemplates) }

// Placeholder returns min(maxItems, PlaceholderCount()) illustrative items
// for ticker, newest first. It never fails and every item passes Valid.
func Placeholder(ticker string, maxItems int, now time.Time) []model.NewsItem {
	n := len(placeholderTemplates)
	if maxItems < n {
		n = maxItems
	}
	if n < 0 {
		n = 0
	}
	link := "https://finance.yahoo.com/quote/" + url.PathEscape(ticker) + "/news"
	out := make([]model.NewsItem, n)
	for i := 0; i < n; i++ {
		out[i] = model.NewsItem{
			Title:       fmt.Sprintf(placeholderTemplates[i], ticker),
			Link:        link,
			Publisher:   PlaceholderPublisher,
			PublishedAt: now.Add(-time.Duration(i) * time.Hour).Unix(),
		}
	}
	return out
}
