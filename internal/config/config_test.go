package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LayerSentinel/internal/model"
)

var overrideVars = []string{
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "MARKET_BASE_URL", "MARKET_API_KEY",
	"ALPACA_API_KEY", "ALPACA_API_SECRET", "REDIS_ADDR", "SQLITE_PATH",
	"HTTPS_PROXY", "LOG_LEVEL", "HTTP_ADDR", "USE_DEMO_NEWS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range overrideVars {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, MarketYahoo, cfg.Market.Source)
	assert.Equal(t, "SPY", cfg.Market.Benchmark)
	assert.Equal(t, model.Period1Y, cfg.Market.Period)
	assert.Equal(t, 5*time.Minute, cfg.Market.TTL)
	assert.Equal(t, 10*time.Minute, cfg.News.TTL)
	assert.Equal(t, 5, cfg.News.MaxItems)
	assert.Equal(t, model.DefaultWeights(), cfg.Weights)
	assert.Equal(t, "RSP", cfg.Macro.Symbols.Broad)
	assert.Equal(t, model.Period5D, cfg.Macro.Period)
	assert.Len(t, cfg.Layers, 4)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ParsesYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
market:
  benchmark: QQQ
  ttl: 90s
  timeout: 3s
news:
  max_items: 3
  use_demo: true
weights:
  fundamental_bonus: 2
layers:
  - name: Chips
    etf: SMH
    stock: NVDA
    keywords: [gpu, hbm]
    fundamental: true
schedule:
  report_cron: "0 0 17 * * 1-5"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "QQQ", cfg.Market.Benchmark)
	assert.Equal(t, 90*time.Second, cfg.Market.TTL)
	assert.Equal(t, 3*time.Second, cfg.Market.Timeout)
	assert.Equal(t, 3, cfg.News.MaxItems)
	assert.True(t, cfg.News.UseDemo)
	assert.Equal(t, 2, cfg.Weights.FundamentalBonus)
	assert.Equal(t, 3, cfg.Weights.MomentumPoints, "unset weights keep their defaults")
	require.Len(t, cfg.Layers, 1)
	assert.Equal(t, []string{"gpu", "hbm"}, cfg.Layers[0].Keywords)
	assert.True(t, cfg.Layers[0].Fundamental)
	assert.Equal(t, "0 0 17 * * 1-5", cfg.Schedule.ReportCron)
	assert.Equal(t, "0 0 9 * * 1-5", cfg.Schedule.MacroCron)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "market: [unterminated")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("MARKET_BASE_URL", "http://bars.local")
	t.Setenv("ALPACA_API_KEY", "ak")
	t.Setenv("ALPACA_API_SECRET", "as")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("USE_DEMO_NEWS", "true")
	t.Setenv("HTTP_ADDR", ":9999")
	path := writeConfig(t, "telegram:\n  bot_token: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tok", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, "http://bars.local", cfg.Market.BaseURL)
	assert.Equal(t, MarketREST, cfg.Market.Source, "a base url selects the rest source")
	assert.Equal(t, "ak", cfg.Alpaca.APIKey)
	assert.Equal(t, "as", cfg.Alpaca.APISecret)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.True(t, cfg.News.UseDemo)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.NoError(t, cfg.ValidateBot())
}

func TestLoad_BadDemoFlag(t *testing.T) {
	clearEnv(t)
	t.Setenv("USE_DEMO_NEWS", "maybe")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"duplicate layer", func(c *Config) { c.Layers[1].Name = c.Layers[0].Name }},
		{"blank etf", func(c *Config) { c.Layers[0].ETF = " " }},
		{"blank name", func(c *Config) { c.Layers[0].Name = "" }},
		{"no layers", func(c *Config) { c.Layers = nil }},
		{"blank benchmark", func(c *Config) { c.Market.Benchmark = "" }},
		{"bad period", func(c *Config) { c.Market.Period = "2y" }},
		{"bad market source", func(c *Config) { c.Market.Source = "ftp" }},
		{"rest without url", func(c *Config) { c.Market.Source = MarketREST; c.Market.BaseURL = "" }},
		{"alpaca without keys", func(c *Config) { c.News.Source = NewsAlpaca }},
		{"zero max score", func(c *Config) { c.Weights.MaxScore = 0 }},
		{"negative points", func(c *Config) { c.Weights.FundamentalBonus = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	assert.Empty(t, cfg.Warnings())

	cfg.Weights.FundamentalBonus = 8
	cfg.Market.Period = model.Period1M
	assert.Len(t, cfg.Warnings(), 2)
}

func TestValidateBot(t *testing.T) {
	cfg := validConfig(t)
	assert.Error(t, cfg.ValidateBot())

	cfg.Telegram.BotToken = "tok"
	assert.Error(t, cfg.ValidateBot())

	cfg.Telegram.ChatID = "1"
	assert.NoError(t, cfg.ValidateBot())
}
