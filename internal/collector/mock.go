package collector

import (
	"context"
	"sync"
	"time"

	"LayerSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols absent from Series get a synthetic drifting series; symbols listed
// in Missing return no rows.
type MockFetcher struct {
	Series  map[string][]model.PricePoint
	Errors  map[string]error
	Missing map[string]bool
	Drift   float64

	mu    sync.Mutex
	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCloses(ctx context.Context, symbol string, period model.Period) ([]model.PricePoint, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if m.Missing[symbol] {
		return nil, nil
	}
	if pts, ok := m.Series[symbol]; ok {
		return pts, nil
	}
	return GenerateSeries(100, m.Drift, tradingDays(period), time.Now()), nil
}

// Calls returns how many FetchCloses calls were made.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// GenerateSeries builds count daily closes ending at end, each drift (a
// fraction, e.g. 0.001) above the previous one.
func GenerateSeries(base, drift float64, count int, end time.Time) []model.PricePoint {
	pts := make([]model.PricePoint, count)
	p := base
	for i := 0; i < count; i++ {
		pts[i] = model.PricePoint{
			Date:  end.AddDate(0, 0, -(count - 1 - i)).Truncate(24 * time.Hour),
			Close: p,
		}
		p *= 1 + drift
	}
	return pts
}
