package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"LayerSentinel/internal/model"
	"LayerSentinel/internal/transport"
)

// DefaultYahooSearchURL is the public search host that carries ticker news.
const DefaultYahooSearchURL = "https://query2.finance.yahoo.com"

// YahooSource reads the news block of the Yahoo Finance search endpoint.
type YahooSource struct {
	BaseURL string
	Count   int
	Client  *http.Client
	Guard   *transport.Guard
}

// NewYahooSource creates a YahooSource. guard may be nil.
func NewYahooSource(client *http.Client, guard *transport.Guard) *YahooSource {
	return &YahooSource{BaseURL: DefaultYahooSearchURL, Count: 10, Client: client, Guard: guard}
}

func (s *YahooSource) Name() string { return "yahoo" }

type yahooSearch struct {
	News []map[string]any `json:"news"`
}

// Fetch returns raw records carrying title, link, publisher and
// providerPublishTime.
func (s *YahooSource) Fetch(ctx context.Context, ticker string) ([]model.RawNewsItem, error) {
	q := url.Values{}
	q.Set("q", ticker)
	q.Set("quotesCount", "0")
	q.Set("newsCount", fmt.Sprint(s.Count))
	u := s.BaseURL + "/v1/finance/search?" + q.Encode()

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

func (s *YahooSource) get(ctx context.Context, u string) ([]model.RawNewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo news: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo news read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo news: status %d", resp.StatusCode)
	}

	var res yahooSearch
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("yahoo news decode: %w", err)
	}
	out := make([]model.RawNewsItem, 0, len(res.News))
	for _, n := range res.News {
		out = append(out, model.RawNewsItem(n))
	}
	return out, nil
}
