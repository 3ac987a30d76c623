package collector

import (
	"context"
	"errors"

	"LayerSentinel/internal/model"
)

// ErrNoData is returned when none of the requested symbols produced rows.
var ErrNoData = errors.New("no market data returned")

// Fetcher defines the interface for fetching daily closes.
type Fetcher interface {
	FetchCloses(ctx context.Context, symbol string, period model.Period) ([]model.PricePoint, error)
	Name() string
}

// tradingDays approximates the number of daily bars in a period.
func tradingDays(p model.Period) int {
	switch p {
	case model.Period5D:
		return 5
	case model.Period1M:
		return 22
	case model.Period6M:
		return 126
	default:
		return 252
	}
}
