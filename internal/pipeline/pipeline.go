// Package pipeline runs one scoring cycle end to end: market pull, layer
// scoring, top-layer news and classification. The macro reading runs as a
// separate cycle.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"LayerSentinel/internal/macro"
	"LayerSentinel/internal/model"
	"LayerSentinel/internal/news"
	"LayerSentinel/internal/sentiment"
	"LayerSentinel/internal/strategy"
)

// MarketSource returns close series keyed by symbol.
type MarketSource interface {
	Fetch(ctx context.Context, symbols []string, period model.Period) (map[string]model.PriceSeries, error)
}

// NewsSource runs the news fallback chain.
type NewsSource interface {
	Fetch(ctx context.Context, ticker, description string, maxItems int, useDemo bool) news.Result
}

// FlagSource supplies the current fundamental flags.
type FlagSource interface {
	Snapshot() map[string]bool
}

// Metrics receives per-run observations.
type Metrics interface {
	LayerScored(layer string, score int)
	LayerFailed(layer, reason string)
	ObserveRun(d time.Duration)
}

// Sink persists finished reports.
type Sink interface {
	SaveRun(ctx context.Context, r *Report) error
	SaveMacro(ctx context.Context, r *MacroReport) error
}

// Config is the read-only run configuration.
type Config struct {
	Layers       []model.LayerConfig
	Weights      model.ScoringWeights
	Benchmark    string
	Period       model.Period
	MacroSymbols macro.Symbols
	MacroPeriod  model.Period
	Bullish      []string
}

// Options are the per-run switches.
type Options struct {
	UseDemoNews  bool
	MaxNewsItems int

	// Layers restricts the run to the named layers. Empty means all.
	Layers []string
}

// Report is the result of one scoring run.
type Report struct {
	RunID     string                 `json:"run_id"`
	StartedAt time.Time              `json:"started_at"`
	Duration  time.Duration          `json:"duration"`
	Outcomes  []model.LayerOutcome   `json:"-"`
	Top       *model.LayerOutcome    `json:"-"`
	News      news.Result            `json:"news"`
	Tagged    []model.TaggedNewsItem `json:"tagged"`
}

// Scored returns the number of layers that produced a score.
func (r *Report) Scored() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// MacroReport is the result of one macro run.
type MacroReport struct {
	RunID   string             `json:"run_id"`
	At      time.Time          `json:"at"`
	Reading model.MacroReading `json:"reading"`
	Light   macro.Light        `json:"light"`
}

// Runner wires the providers to the scoring engine.
type Runner struct {
	cfg     Config
	market  MarketSource
	news    NewsSource
	flags   FlagSource
	engine  *strategy.Engine
	Metrics Metrics
	Sink    Sink
	now     func() time.Time
	log     zerolog.Logger
}

// NewRunner creates a Runner. flags may be nil, in which case every layer
// uses its configured default.
func NewRunner(cfg Config, market MarketSource, newsSrc NewsSource, flags FlagSource, log zerolog.Logger) *Runner {
	if cfg.Period == "" {
		cfg.Period = model.Period1Y
	}
	if cfg.MacroPeriod == "" {
		cfg.MacroPeriod = model.Period5D
	}
	if cfg.MacroSymbols == (macro.Symbols{}) {
		cfg.MacroSymbols = macro.DefaultSymbols()
	}
	return &Runner{
		cfg:    cfg,
		market: market,
		news:   newsSrc,
		flags:  flags,
		engine: strategy.NewEngine(cfg.Weights, cfg.Benchmark),
		now:    time.Now,
		log:    log.With().Str("component", "pipeline").Logger(),
	}
}

// Layers returns the configured layers.
func (r *Runner) Layers() []model.LayerConfig { return r.cfg.Layers }

// Run executes one scoring cycle. Per-layer failures are carried in the
// report; Run itself fails only on context cancellation.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	start := r.now()
	rep := &Report{RunID: uuid.NewString(), StartedAt: start}
	log := r.log.With().Str("run_id", rep.RunID).Logger()

	symbols := make([]string, 0, len(r.cfg.Layers)+1)
	symbols = append(symbols, r.cfg.Benchmark)
	for _, l := range r.cfg.Layers {
		symbols = append(symbols, l.ETF)
	}
	series, err := r.market.Fetch(ctx, symbols, r.cfg.Period)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn().Err(err).Msg("market pull failed, every layer will be unavailable")
	}

	flags := r.currentFlags()
	if len(opts.Layers) > 0 {
		rep.Outcomes = r.engine.ScoreNamed(opts.Layers, r.cfg.Layers, series, flags)
	} else {
		rep.Outcomes = r.engine.ScoreAll(r.cfg.Layers, series, flags)
	}
	r.observe(rep.Outcomes, log)

	if top, ok := strategy.Top(rep.Outcomes); ok {
		rep.Top = &top
		rep.News = r.news.Fetch(ctx, top.Layer.NewsSymbol(), top.Layer.Description, opts.MaxNewsItems, opts.UseDemoNews)
		rep.Tagged = sentiment.Tag(rep.News.Items, top.Layer.Keywords, r.cfg.Bullish)
	} else {
		log.Warn().Msg("no layer could be scored, skipping news")
	}

	rep.Duration = r.now().Sub(start)
	if r.Metrics != nil {
		r.Metrics.ObserveRun(rep.Duration)
	}
	log.Info().
		Int("layers", len(rep.Outcomes)).
		Int("scored", rep.Scored()).
		Str("news_tier", string(rep.News.Tier)).
		Dur("took", rep.Duration).
		Msg("scoring run complete")

	r.save(func(s Sink) error { return s.SaveRun(ctx, rep) }, log)
	return rep, nil
}

// News runs the news chain for an arbitrary ticker. When the ticker belongs
// to a configured layer, its description and keywords are used.
func (r *Runner) News(ctx context.Context, ticker string, opts Options) (news.Result, []model.TaggedNewsItem) {
	var desc string
	var keywords []string
	for _, l := range r.cfg.Layers {
		if l.NewsSymbol() == ticker || l.Stock == ticker || l.ETF == ticker {
			desc, keywords = l.Description, l.Keywords
			break
		}
	}
	res := r.news.Fetch(ctx, ticker, desc, opts.MaxNewsItems, opts.UseDemoNews)
	return res, sentiment.Tag(res.Items, keywords, r.cfg.Bullish)
}

// Macro executes one macro cycle. Missing series leave their indicator
// empty; Macro fails only on context cancellation.
func (r *Runner) Macro(ctx context.Context) (*MacroReport, error) {
	rep := &MacroReport{RunID: uuid.NewString(), At: r.now()}
	log := r.log.With().Str("run_id", rep.RunID).Logger()

	series, err := r.market.Fetch(ctx, r.cfg.MacroSymbols.List(), r.cfg.MacroPeriod)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn().Err(err).Msg("macro pull failed")
	}
	rep.Reading = macro.Compute(series, r.cfg.MacroSymbols)
	rep.Light = macro.Assess(rep.Reading)

	ev := log.Info().Str("light", string(rep.Light)).Bool("yield_shock", rep.Reading.YieldShock)
	if rep.Reading.Breadth != nil {
		ev = ev.Float64("breadth", rep.Reading.Breadth.Ratio)
	}
	if rep.Reading.VIX != nil {
		ev = ev.Float64("vix", *rep.Reading.VIX)
	}
	ev.Msg("macro run complete")

	r.save(func(s Sink) error { return s.SaveMacro(ctx, rep) }, log)
	return rep, nil
}

func (r *Runner) currentFlags() map[string]bool {
	if r.flags != nil {
		return r.flags.Snapshot()
	}
	out := make(map[string]bool, len(r.cfg.Layers))
	for _, l := range r.cfg.Layers {
		out[l.Name] = l.Fundamental
	}
	return out
}

func (r *Runner) observe(outcomes []model.LayerOutcome, log zerolog.Logger) {
	for _, o := range outcomes {
		if !o.OK() {
			log.Warn().Err(o.Err).Str("layer", o.Layer.Name).Msg("layer not scored")
			if r.Metrics != nil {
				r.Metrics.LayerFailed(o.Layer.Name, strategy.Reason(o.Err))
			}
			continue
		}
		if o.Result.Clamped {
			log.Warn().
				Str("layer", o.Layer.Name).
				Int("raw", o.Result.RawScore).
				Int("max", r.cfg.Weights.MaxScore).
				Msg("score clamped")
		}
		if r.Metrics != nil {
			r.Metrics.LayerScored(o.Layer.Name, o.Result.Score)
		}
	}
}

func (r *Runner) save(fn func(Sink) error, log zerolog.Logger) {
	if r.Sink == nil {
		return
	}
	if err := fn(r.Sink); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("failed to record run")
	}
}
