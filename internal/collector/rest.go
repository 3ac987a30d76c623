package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"LayerSentinel/internal/model"
	"LayerSentinel/internal/transport"
)

// RESTFetcher implements Fetcher against a self-hosted daily bars API.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Guard   *transport.Guard
}

// NewRESTFetcher creates a fetcher for baseURL. guard may be nil.
func NewRESTFetcher(baseURL, apiKey string, client *http.Client, guard *transport.Guard) *RESTFetcher {
	return &RESTFetcher{BaseURL: baseURL, APIKey: apiKey, Client: client, Guard: guard}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Close     float64 `json:"close"`
}

// FetchCloses requests the last N daily bars, N derived from period.
func (f *RESTFetcher) FetchCloses(ctx context.Context, symbol string, period model.Period) ([]model.PricePoint, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("rest: unsupported period %q", period)
	}
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&limit=%d",
		f.BaseURL, url.QueryEscape(symbol), tradingDays(period))

	var points []model.PricePoint
	call := func() error {
		var err error
		points, err = f.fetchBars(ctx, endpoint)
		return err
	}
	var err error
	if f.Guard == nil {
		err = call()
	} else {
		err = f.Guard.Do(ctx, call)
	}
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (f *RESTFetcher) fetchBars(ctx context.Context, endpoint string) ([]model.PricePoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var bars []restBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	points := make([]model.PricePoint, 0, len(bars))
	for _, b := range bars {
		if b.Close == 0 {
			continue
		}
		points = append(points, model.PricePoint{Date: time.Unix(b.Timestamp, 0).UTC(), Close: b.Close})
	}
	// Ensure chronological order
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}
