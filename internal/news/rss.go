package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed/rss"

	"LayerSentinel/internal/model"
	"LayerSentinel/internal/transport"
)

// DefaultGoogleNewsURL is the Google News RSS search endpoint.
const DefaultGoogleNewsURL = "https://news.google.com/rss/search"

// RSSSource searches Google News and parses the RSS response.
type RSSSource struct {
	BaseURL string
	Client  *http.Client
	Guard   *transport.Guard
}

// NewRSSSource creates an RSSSource. guard may be nil.
func NewRSSSource(client *http.Client, guard *transport.Guard) *RSSSource {
	return &RSSSource{BaseURL: DefaultGoogleNewsURL, Client: client, Guard: guard}
}

func (s *RSSSource) Name() string { return "google-rss" }

// Search returns raw records built from RSS title, link, source and pubDate.
func (s *RSSSource) Search(ctx context.Context, query string) ([]model.RawNewsItem, error) {
	u := s.BaseURL + "?q=" + url.QueryEscape(query) + "&hl=en-US&gl=US&ceid=US:en"

	var out []model.RawNewsItem
	call := func() error {
		var err error
		out, err = s.get(ctx, u)
		return err
	}
	var err error
	if s.Guard == nil {
		err = call()
	} else {
		err = s.Guard.Do(ctx, call)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RSSSource) get(ctx context.Context, u string) ([]model.RawNewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rss search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss search: status %d", resp.StatusCode)
	}

	fp := rss.Parser{}
	feed, err := fp.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rss parse: %w", err)
	}

	out := make([]model.RawNewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		raw := model.RawNewsItem{
			"title": item.Title,
			"link":  item.Link,
		}
		if item.Source != nil && item.Source.Title != "" {
			raw["source"] = item.Source.Title
			// Google appends " - Publisher" to every title.
			raw["title"] = strings.TrimSuffix(item.Title, " - "+item.Source.Title)
		}
		if item.PubDateParsed != nil {
			raw["providerPublishTime"] = item.PubDateParsed.Unix()
		}
		out = append(out, raw)
	}
	return out, nil
}

// SearchQuery builds the syndication search query for a ticker.
func SearchQuery(ticker, description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ticker + " stock news"
	}
	return ticker + " " + description + " news"
}
