// Package sentiment tags news titles by layer keyword and bullish-term hits.
package sentiment

import (
	"strings"

	"LayerSentinel/internal/model"
)

// DefaultBullish is the stock list of bullish terms.
var DefaultBullish = []string{
	"surge", "soar", "beat", "record", "upgrade", "rally", "jump",
	"growth", "expand", "partnership", "breakthrough", "raises", "strong demand",
}

// Classify tags a title. Keyword and bullish hits are case-insensitive
// substring matches; a bullish hit alone is not enough to lift a title out
// of NEUTRAL. A nil bullish list uses DefaultBullish.
func Classify(title string, keywords, bullish []string) model.Classification {
	if bullish == nil {
		bullish = DefaultBullish
	}
	t := strings.ToLower(title)
	keyword := containsAny(t, keywords)
	switch {
	case keyword && containsAny(t, bullish):
		return model.ClassStrong
	case keyword:
		return model.ClassKeyword
	default:
		return model.ClassNeutral
	}
}

// Tag classifies every item, preserving order.
func Tag(items []model.NewsItem, keywords, bullish []string) []model.TaggedNewsItem {
	out := make([]model.TaggedNewsItem, len(items))
	for i, it := range items {
		out[i] = model.TaggedNewsItem{NewsItem: it, Class: Classify(it.Title, keywords, bullish)}
	}
	return out
}

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
