package news

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"LayerSentinel/internal/model"
)

// NewsGetter is the slice of the Alpaca market data client used here.
type NewsGetter interface {
	GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error)
}

// AlpacaSource reads per-ticker news from the Alpaca news API.
type AlpacaSource struct {
	Client   NewsGetter
	Limit    int
	Lookback time.Duration
	now      func() time.Time
}

// NewAlpacaSource builds a source backed by a real Alpaca client.
func NewAlpacaSource(apiKey, apiSecret string) *AlpacaSource {
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
	return &AlpacaSource{Client: client, Limit: 20, Lookback: 7 * 24 * time.Hour, now: time.Now}
}

func (s *AlpacaSource) Name() string { return "alpaca" }

// Fetch returns the ticker's news over the lookback window. The Alpaca
// client does not take a context, so cancellation is only checked up front.
func (s *AlpacaSource) Fetch(ctx context.Context, ticker string) ([]model.RawNewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	end := now()
	news, err := s.Client.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{ticker},
		Start:      end.Add(-s.Lookback),
		End:        end,
		TotalLimit: s.Limit,
		Sort:       marketdata.SortDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca news %s: %w", ticker, err)
	}

	out := make([]model.RawNewsItem, 0, len(news))
	for _, n := range news {
		out = append(out, model.RawNewsItem{
			"headline":            n.Headline,
			"url":                 n.URL,
			"source":              n.Source,
			"providerPublishTime": n.CreatedAt.Unix(),
		})
	}
	return out, nil
}
