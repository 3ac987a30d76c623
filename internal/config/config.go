package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"LayerSentinel/internal/macro"
	"LayerSentinel/internal/model"
	"LayerSentinel/internal/news"
)

// Market sources.
const (
	MarketYahoo = "yahoo"
	MarketREST  = "rest"
	MarketMock  = "mock"
)

// News sources.
const (
	NewsYahoo  = "yahoo"
	NewsAlpaca = "alpaca"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Market struct {
		Source            string        `yaml:"source"`
		BaseURL           string        `yaml:"base_url"`
		APIKey            string        `yaml:"api_key"`
		Benchmark         string        `yaml:"benchmark"`
		Period            model.Period  `yaml:"period"`
		TTL               time.Duration `yaml:"ttl"`
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Burst             int           `yaml:"burst"`
		BreakerFailures   uint32        `yaml:"breaker_failures"`
		BreakerTimeout    time.Duration `yaml:"breaker_timeout"`
	} `yaml:"market"`
	News struct {
		Source        string        `yaml:"source"`
		TTL           time.Duration `yaml:"ttl"`
		Timeout       time.Duration `yaml:"timeout"`
		MaxItems      int           `yaml:"max_items"`
		UseDemo       bool          `yaml:"use_demo"`
		DisableSearch bool          `yaml:"disable_search"`
		Bullish       []string      `yaml:"bullish"`
	} `yaml:"news"`
	Alpaca struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
	} `yaml:"alpaca"`
	Macro struct {
		Symbols macro.Symbols `yaml:"symbols"`
		Period  model.Period  `yaml:"period"`
	} `yaml:"macro"`
	Layers   []model.LayerConfig  `yaml:"layers"`
	Weights  model.ScoringWeights `yaml:"weights"`
	Schedule struct {
		ReportCron string `yaml:"report_cron"`
		MacroCron  string `yaml:"macro_cron"`
		SweepCron  string `yaml:"sweep_cron"`
	} `yaml:"schedule"`
	Cache struct {
		RedisAddr string `yaml:"redis_addr"`
		Prefix    string `yaml:"prefix"`
	} `yaml:"cache"`
	Flags struct {
		StateFile string `yaml:"state_file"`
	} `yaml:"flags"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// DefaultLayers returns the four AI infrastructure layers.
func DefaultLayers() []model.LayerConfig {
	return []model.LayerConfig{
		{
			Name:        "Chips",
			ETF:         "SMH",
			Stock:       "NVDA",
			NewsTicker:  "NVDA",
			Keywords:    []string{"gpu", "chip", "semiconductor", "accelerator", "hbm"},
			Description: "AI semiconductors",
		},
		{
			Name:        "Power",
			ETF:         "GRID",
			Stock:       "VRT",
			NewsTicker:  "VRT",
			Keywords:    []string{"power", "grid", "nuclear", "cooling", "electricity"},
			Description: "data center power",
		},
		{
			Name:        "Cloud",
			ETF:         "SKYY",
			Stock:       "AMZN",
			NewsTicker:  "AMZN",
			Keywords:    []string{"cloud", "hyperscaler", "capex", "data center", "aws"},
			Description: "cloud infrastructure",
		},
		{
			Name:        "Software",
			ETF:         "IGV",
			Stock:       "MSFT",
			NewsTicker:  "MSFT",
			Keywords:    []string{"copilot", "agent", "saas", "software", "model"},
			Description: "AI software",
		},
	}
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Weights = model.DefaultWeights()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("MARKET_BASE_URL"); v != "" {
		cfg.Market.BaseURL = v
	}
	if v := os.Getenv("MARKET_API_KEY"); v != "" {
		cfg.Market.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("USE_DEMO_NEWS"); v != "" {
		demo, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse USE_DEMO_NEWS: %w", err)
		}
		cfg.News.UseDemo = demo
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Market.Source == "" {
		c.Market.Source = MarketYahoo
		if c.Market.BaseURL != "" {
			c.Market.Source = MarketREST
		}
	}
	if c.Market.Benchmark == "" {
		c.Market.Benchmark = "SPY"
	}
	if c.Market.Period == "" {
		c.Market.Period = model.Period1Y
	}
	if c.Market.TTL == 0 {
		c.Market.TTL = 5 * time.Minute
	}
	if c.Market.Timeout == 0 {
		c.Market.Timeout = 20 * time.Second
	}
	if c.Market.RequestsPerSecond == 0 {
		c.Market.RequestsPerSecond = 5
	}
	if c.Market.Burst == 0 {
		c.Market.Burst = 5
	}
	if c.Market.BreakerFailures == 0 {
		c.Market.BreakerFailures = 5
	}
	if c.Market.BreakerTimeout == 0 {
		c.Market.BreakerTimeout = 30 * time.Second
	}
	if c.News.Source == "" {
		c.News.Source = NewsYahoo
	}
	if c.News.TTL == 0 {
		c.News.TTL = 10 * time.Minute
	}
	if c.News.Timeout == 0 {
		c.News.Timeout = 10 * time.Second
	}
	if c.News.MaxItems == 0 {
		c.News.MaxItems = news.DefaultMaxItems
	}
	if c.Macro.Symbols == (macro.Symbols{}) {
		c.Macro.Symbols = macro.DefaultSymbols()
	}
	if c.Macro.Period == "" {
		c.Macro.Period = model.Period5D
	}
	if len(c.Layers) == 0 {
		c.Layers = DefaultLayers()
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 30 16 * * 1-5"
	}
	if c.Schedule.MacroCron == "" {
		c.Schedule.MacroCron = "0 0 9 * * 1-5"
	}
	if c.Schedule.SweepCron == "" {
		c.Schedule.SweepCron = "0 */15 * * * *"
	}
	if c.Flags.StateFile == "" {
		c.Flags.StateFile = "data/flags_state.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/layer_sentinel.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the settings the scoring engine depends on.
func (c *Config) Validate() error {
	if len(c.Layers) == 0 {
		return errors.New("layers: at least one layer is required")
	}
	seen := make(map[string]bool, len(c.Layers))
	for i, l := range c.Layers {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			return fmt.Errorf("layers[%d]: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("layers[%d]: duplicate layer name %q", i, name)
		}
		seen[name] = true
		if strings.TrimSpace(l.ETF) == "" {
			return fmt.Errorf("layers[%d] %s: etf is required", i, name)
		}
	}
	if strings.TrimSpace(c.Market.Benchmark) == "" {
		return errors.New("market.benchmark is required")
	}
	if !c.Market.Period.Valid() {
		return fmt.Errorf("market.period %q is not supported", c.Market.Period)
	}
	if !c.Macro.Period.Valid() {
		return fmt.Errorf("macro.period %q is not supported", c.Macro.Period)
	}
	switch c.Market.Source {
	case MarketYahoo, MarketMock:
	case MarketREST:
		if c.Market.BaseURL == "" {
			return errors.New("market.base_url is required for the rest source")
		}
	default:
		return fmt.Errorf("market.source %q is not supported", c.Market.Source)
	}
	switch c.News.Source {
	case NewsYahoo:
	case NewsAlpaca:
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			return errors.New("alpaca.api_key and alpaca.api_secret are required for the alpaca news source")
		}
	default:
		return fmt.Errorf("news.source %q is not supported", c.News.Source)
	}
	w := c.Weights
	if w.MaxScore <= 0 {
		return errors.New("weights.max_score must be positive")
	}
	if w.MomentumPoints < 0 || w.RelStrengthPoints < 0 || w.FundamentalBonus < 0 {
		return errors.New("weights: point awards must not be negative")
	}
	if c.News.MaxItems < 0 {
		return errors.New("news.max_items must not be negative")
	}
	return nil
}

// Warnings lists settings that are accepted but probably unintended.
func (c *Config) Warnings() []string {
	var out []string
	if award := c.Weights.MaxAward(); award > c.Weights.MaxScore {
		out = append(out, fmt.Sprintf("weights award up to %d points but max_score is %d; scores will be clamped", award, c.Weights.MaxScore))
	}
	if c.Market.Period != model.Period1Y {
		out = append(out, fmt.Sprintf("market.period %s may hold fewer bars than the scoring lookback", c.Market.Period))
	}
	return out
}

// ValidateBot checks the settings the Telegram daemon needs.
func (c *Config) ValidateBot() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}
