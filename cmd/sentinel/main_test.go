package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LayerSentinel/internal/macro"
	"LayerSentinel/internal/model"
	"LayerSentinel/internal/news"
	"LayerSentinel/internal/pipeline"
	"LayerSentinel/internal/server"
)

// offlineConfig writes a config that needs no network: mock market data
// and placeholder news.
func offlineConfig(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"MARKET_BASE_URL", "REDIS_ADDR", "SQLITE_PATH", "USE_DEMO_NEWS", "ALPACA_API_KEY", "ALPACA_API_SECRET"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	body := fmt.Sprintf(`
market:
  source: mock
news:
  use_demo: true
  disable_search: true
flags:
  state_file: %s
database:
  sqlite_path: %s
log:
  level: error
`, filepath.Join(dir, "flags.json"), filepath.Join(dir, "sentinel.db"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	jsonOutput = false
	scoreDemo, scoreMaxNews, scoreLayers = false, 0, nil
	newsDemo, newsMaxItems = false, 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestScoreCommand_JSON(t *testing.T) {
	cfg := offlineConfig(t)
	out := execute(t, "score", "--config", cfg, "--json")

	var got server.ReportView
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Layers, 4)
	assert.Equal(t, "Chips", got.Top)
	for _, l := range got.Layers {
		require.NotNil(t, l.Result, l.Layer)
		// Identical synthetic series: moderate momentum plus keeping pace.
		assert.Equal(t, 2, l.Result.Score, l.Layer)
		assert.Len(t, l.Result.Evidence, 3)
	}
	assert.Equal(t, news.TierPlaceholder, got.News.Tier)
	assert.False(t, got.News.Live)
	assert.Len(t, got.Tagged, news.PlaceholderCount())
}

func TestScoreCommand_LayerFilterAndTable(t *testing.T) {
	cfg := offlineConfig(t)
	out := execute(t, "score", "--config", cfg, "--layers", "Power,Ghost", "--max-news", "2")

	assert.Contains(t, out, "Power")
	assert.Contains(t, out, "config_inconsistency")
	assert.Contains(t, out, "Top layer: Power")
	assert.Contains(t, out, "placeholder, offline")
	assert.NotContains(t, out, "SMH")
}

func TestNewsCommand(t *testing.T) {
	cfg := offlineConfig(t)
	out := execute(t, "news", "nvda", "--config", cfg, "--json", "--max", "2")

	var got server.NewsView
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "NVDA", got.Ticker)
	assert.Equal(t, news.TierPlaceholder, got.Tier)
	assert.Len(t, got.Items, 2)
}

func TestMacroCommand(t *testing.T) {
	cfg := offlineConfig(t)
	out := execute(t, "macro", "--config", cfg, "--json")

	var got pipeline.MacroReport
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.Reading.Breadth)
	assert.Equal(t, model.BreadthNeutral, got.Reading.Breadth.Class)
	// The synthetic VIX series sits near 100.
	assert.Equal(t, model.VIXElevated, got.Reading.VIXTier)
	assert.Equal(t, macro.LightRed, got.Light)
}

func TestCacheClearCommand(t *testing.T) {
	cfg := offlineConfig(t)
	out := execute(t, "cache", "clear", "--config", cfg)

	assert.Contains(t, out, "cache cleared")
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	cfg := offlineConfig(t)
	bad := filepath.Join(filepath.Dir(cfg), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("market:\n  source: ftp\n"), 0o644))

	_, err := newApp(t.Context(), bad)
	assert.Error(t, err)
}
