package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"LayerSentinel/internal/cache"
	"LayerSentinel/internal/collector"
	"LayerSentinel/internal/config"
	"LayerSentinel/internal/flags"
	"LayerSentinel/internal/logging"
	"LayerSentinel/internal/metrics"
	"LayerSentinel/internal/news"
	"LayerSentinel/internal/pipeline"
	"LayerSentinel/internal/recorder"
	"LayerSentinel/internal/transport"
)

// app holds every long-lived component built from the config.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Registry
	client  *http.Client
	cache   *cache.Cache
	flags   *flags.Manager
	rec     recorder.Recorder
	runner  *pipeline.Runner
	closers []func() error
}

func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     logging.New(cfg.Log.Level, cfg.Log.Pretty),
		metrics: metrics.New(),
		client:  transport.NewHTTPClient(cfg.Proxy, transport.DefaultTimeout),
	}
	for _, w := range cfg.Warnings() {
		a.log.Warn().Msg(w)
	}

	if err := a.initCache(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if err := ensureDir(cfg.Flags.StateFile); err != nil {
		a.Close()
		return nil, err
	}
	fm, err := flags.NewManager(cfg.Flags.StateFile, cfg.Layers, a.log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init flag manager: %w", err)
	}
	a.flags = fm

	a.initRecorder()

	fetcher := a.marketFetcher()
	a.log.Info().Str("source", fetcher.Name()).Msg("market data source")
	market := collector.NewProvider(fetcher, a.cache, cfg.Market.TTL, cfg.Market.Timeout, a.log)
	market.Metrics = a.metrics

	newsProvider := news.NewProvider(a.newsFeed(), a.newsSearch(), a.cache, cfg.News.TTL, cfg.News.Timeout, a.log)
	newsProvider.Metrics = a.metrics

	a.runner = pipeline.NewRunner(pipeline.Config{
		Layers:       cfg.Layers,
		Weights:      cfg.Weights,
		Benchmark:    cfg.Market.Benchmark,
		Period:       cfg.Market.Period,
		MacroSymbols: cfg.Macro.Symbols,
		MacroPeriod:  cfg.Macro.Period,
		Bullish:      cfg.News.Bullish,
	}, market, newsProvider, a.flags, a.log)
	a.runner.Metrics = a.metrics
	a.runner.Sink = a.rec

	return a, nil
}

func (a *app) initCache(ctx context.Context) error {
	var store cache.Store = cache.NewMemory()
	if addr := a.cfg.Cache.RedisAddr; addr != "" {
		rs, err := cache.DialRedis(ctx, addr, a.cfg.Cache.Prefix)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rs.Close)
		store = rs
		a.log.Info().Str("addr", addr).Msg("redis cache connected")
	}
	a.cache = cache.New(store, a.log, cache.WithObserver(a.metrics))
	return nil
}

// initRecorder falls back to the no-op recorder when SQLite cannot be opened.
func (a *app) initRecorder() {
	path := a.cfg.Database.SQLitePath
	if path == "" {
		a.rec = recorder.NewNoopRecorder()
		return
	}
	if err := ensureDir(path); err != nil {
		a.log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		a.rec = recorder.NewNoopRecorder()
		return
	}
	sr, err := recorder.NewSQLiteRecorder(path, a.log)
	if err != nil {
		a.log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		a.rec = recorder.NewNoopRecorder()
		return
	}
	a.rec = sr
	a.closers = append(a.closers, sr.Close)
}

func (a *app) marketFetcher() collector.Fetcher {
	m := a.cfg.Market
	guard := transport.NewGuard(transport.GuardConfig{
		Name:                m.Source,
		RequestsPerSecond:   m.RequestsPerSecond,
		Burst:               m.Burst,
		ConsecutiveFailures: m.BreakerFailures,
		OpenTimeout:         m.BreakerTimeout,
	}, a.log)

	switch m.Source {
	case config.MarketREST:
		return collector.NewRESTFetcher(m.BaseURL, m.APIKey, a.client, guard)
	case config.MarketMock:
		return &collector.MockFetcher{Drift: 0.001}
	default:
		return collector.NewYahooFetcher(a.client, guard)
	}
}

func (a *app) newsGuard(name string) *transport.Guard {
	return transport.NewGuard(transport.GuardConfig{
		Name:                name,
		RequestsPerSecond:   a.cfg.Market.RequestsPerSecond,
		Burst:               a.cfg.Market.Burst,
		ConsecutiveFailures: a.cfg.Market.BreakerFailures,
		OpenTimeout:         a.cfg.Market.BreakerTimeout,
	}, a.log)
}

func (a *app) newsFeed() news.FeedSource {
	if a.cfg.News.Source == config.NewsAlpaca {
		return news.NewAlpacaSource(a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret)
	}
	return news.NewYahooSource(a.client, a.newsGuard("yahoo-news"))
}

func (a *app) newsSearch() news.SearchSource {
	if a.cfg.News.DisableSearch {
		return nil
	}
	return news.NewRSSSource(a.client, a.newsGuard("rss"))
}

// runOptions returns the configured per-run defaults.
func (a *app) runOptions() pipeline.Options {
	return pipeline.Options{
		UseDemoNews:  a.cfg.News.UseDemo,
		MaxNewsItems: a.cfg.News.MaxItems,
	}
}

// Close releases the recorder and cache connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}

func ensureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	return nil
}
