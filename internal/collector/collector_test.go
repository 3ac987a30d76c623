package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LayerSentinel/internal/cache"
	"LayerSentinel/internal/model"
	"LayerSentinel/internal/transport"
)

const chartBody = `{"chart":{"result":[{"timestamp":[1700172800,1700000000,1700086400],
"indicators":{"quote":[{"close":[103.5,101.0,null]}]}}],"error":null}}`

func TestYahooFetcher_ParsesChart(t *testing.T) {
	var gotPath, gotRange, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.Client(), nil)
	f.BaseURL = srv.URL
	pts, err := f.FetchCloses(context.Background(), "VIX", model.Period5D)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/^VIX", gotPath)
	assert.Equal(t, "5d", gotRange)
	assert.Equal(t, "Mozilla/5.0", gotUA)
	require.Len(t, pts, 2)
	assert.Equal(t, 101.0, pts[0].Close)
	assert.Equal(t, 103.5, pts[1].Close)
	assert.True(t, pts[0].Date.Before(pts[1].Date))
}

func TestYahooFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v8/finance/chart/BAD":
			fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.Client(), nil)
	f.BaseURL = srv.URL

	_, err := f.FetchCloses(context.Background(), "BAD", model.Period1Y)
	assert.ErrorContains(t, err, "No data found")
	_, err = f.FetchCloses(context.Background(), "SPY", model.Period1Y)
	assert.ErrorContains(t, err, "status 429")
	_, err = f.FetchCloses(context.Background(), "SPY", model.Period("2w"))
	assert.ErrorContains(t, err, "unsupported period")
}

func TestYahooFetcher_BreakerOpens(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	guard := transport.NewGuard(transport.GuardConfig{Name: "yahoo", ConsecutiveFailures: 2}, zerolog.Nop())
	f := NewYahooFetcher(srv.Client(), guard)
	f.BaseURL = srv.URL

	for i := 0; i < 2; i++ {
		_, err := f.FetchCloses(context.Background(), "SPY", model.Period5D)
		require.Error(t, err)
	}
	_, err := f.FetchCloses(context.Background(), "SPY", model.Period5D)
	assert.ErrorIs(t, err, transport.ErrCircuitOpen)
	assert.Equal(t, 2, hits)
}

func TestRESTFetcher_FetchCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bars/daily", r.URL.Path)
		assert.Equal(t, "SMH", r.URL.Query().Get("symbol"))
		assert.Equal(t, "126", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		fmt.Fprint(w, `[{"timestamp":1700086400,"close":210.5},{"timestamp":1700000000,"close":205.0},{"timestamp":1700172800,"close":0}]`)
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", srv.Client(), nil)
	pts, err := f.FetchCloses(context.Background(), "SMH", model.Period6M)
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, 205.0, pts[0].Close)
	assert.Equal(t, 210.5, pts[1].Close)
}

type failureCounter struct{ n map[string]int }

func (f *failureCounter) FetchFailed(source string) { f.n[source]++ }

func newTestProvider(f Fetcher) *Provider {
	c := cache.New(cache.NewMemory(), zerolog.Nop())
	return NewProvider(f, c, time.Minute, time.Second, zerolog.Nop())
}

func TestProvider_AbsentSymbolsAreOmitted(t *testing.T) {
	mock := &MockFetcher{
		Missing: map[string]bool{"GRID": true},
		Errors:  map[string]error{"IGV": errors.New("boom")},
	}
	p := newTestProvider(mock)
	fails := &failureCounter{n: map[string]int{}}
	p.Metrics = fails

	got, err := p.Fetch(context.Background(), []string{"SMH", "GRID", "IGV"}, model.Period1Y)
	require.NoError(t, err)

	assert.Contains(t, got, "SMH")
	assert.NotContains(t, got, "GRID")
	assert.NotContains(t, got, "IGV")
	assert.Equal(t, 252, got["SMH"].Len())
	assert.Equal(t, 1, fails.n["mock"])
}

func TestProvider_CachesPerSymbol(t *testing.T) {
	mock := &MockFetcher{}
	p := newTestProvider(mock)
	ctx := context.Background()

	first, err := p.Fetch(ctx, []string{"SPY", "RSP"}, model.Period5D)
	require.NoError(t, err)
	assert.Equal(t, 2, mock.Calls())

	second, err := p.Fetch(ctx, []string{"RSP", "SPY", "SPY"}, model.Period5D)
	require.NoError(t, err)
	assert.Equal(t, 2, mock.Calls())
	assert.Equal(t, first["SPY"].Closes(), second["SPY"].Closes())

	_, err = p.Fetch(ctx, []string{"SPY", "RSP"}, model.Period1M)
	require.NoError(t, err)
	assert.Equal(t, 4, mock.Calls())
}

func TestProvider_NoDataIsNotCached(t *testing.T) {
	mock := &MockFetcher{Missing: map[string]bool{"ZZZ": true}}
	p := newTestProvider(mock)

	_, err := p.Fetch(context.Background(), []string{"ZZZ"}, model.Period5D)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = p.Fetch(context.Background(), []string{"ZZZ"}, model.Period5D)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 2, mock.Calls())
}

func TestProvider_RejectsBadInput(t *testing.T) {
	p := newTestProvider(&MockFetcher{})
	_, err := p.Fetch(context.Background(), []string{"SPY"}, model.Period("10y"))
	assert.Error(t, err)
	_, err = p.Fetch(context.Background(), []string{" ", ""}, model.Period5D)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestProvider_TransientFailureIsRetried(t *testing.T) {
	mock := &MockFetcher{Errors: map[string]error{"SPY": errors.New("upstream 503")}}
	p := newTestProvider(mock)
	ctx := context.Background()

	first, err := p.Fetch(ctx, []string{"SPY", "SMH"}, model.Period1Y)
	require.NoError(t, err)
	assert.NotContains(t, first, "SPY")
	assert.Contains(t, first, "SMH")
	assert.Equal(t, 2, mock.Calls())

	delete(mock.Errors, "SPY")

	second, err := p.Fetch(ctx, []string{"SPY", "SMH"}, model.Period1Y)
	require.NoError(t, err)
	assert.Contains(t, second, "SPY")
	assert.Contains(t, second, "SMH")
	// Only SPY went upstream again; SMH came from cache.
	assert.Equal(t, 3, mock.Calls())
}

func TestFetchKey(t *testing.T) {
	assert.Equal(t, "market.fetch|5d|SPY", FetchKey("SPY", model.Period5D))
	assert.NotEqual(t, FetchKey("SPY", model.Period5D), FetchKey("SPY", model.Period1Y))
}

func TestGenerateSeries(t *testing.T) {
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	pts := GenerateSeries(100, 0.01, 3, end)
	require.Len(t, pts, 3)
	assert.Equal(t, 100.0, pts[0].Close)
	assert.InDelta(t, 102.01, pts[2].Close, 1e-9)
	assert.Equal(t, end, pts[2].Date)
}
