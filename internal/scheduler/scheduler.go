package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"LayerSentinel/internal/model"
	"LayerSentinel/internal/news"
	"LayerSentinel/internal/notifier"
	"LayerSentinel/internal/pipeline"
)

// Runner executes scoring, news and macro cycles.
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options) (*pipeline.Report, error)
	News(ctx context.Context, ticker string, opts pipeline.Options) (news.Result, []model.TaggedNewsItem)
	Macro(ctx context.Context) (*pipeline.MacroReport, error)
}

// Notifier delivers formatted messages.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// FlagStore is the operator-controlled fundamental flag set.
type FlagStore interface {
	Names() []string
	Snapshot() map[string]bool
	Set(layer string, on bool) error
}

// CacheControl exposes manual invalidation and sweeping.
type CacheControl interface {
	Clear(ctx context.Context) error
	Sweep() int
}

// Scheduler manages all cron tasks and operator commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier Notifier
	Flags    FlagStore
	Cache    CacheControl
	Options  pipeline.Options
	Ctx      context.Context
	log      zerolog.Logger
}

// NewScheduler creates a new Scheduler. notifier may be nil when delivery is
// disabled; reports are then only logged.
func NewScheduler(ctx context.Context, runner Runner, n Notifier, flags FlagStore, c CacheControl, opts pipeline.Options, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: n,
		Flags:    flags,
		Cache:    c,
		Options:  opts,
		Ctx:      ctx,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the report, macro and cache sweep tasks. An empty
// expression skips that task.
func (s *Scheduler) RegisterAll(reportCron, macroCron, sweepCron string) error {
	tasks := []struct {
		name string
		expr string
		fn   func()
	}{
		{"report", reportCron, s.reportTask},
		{"macro", macroCron, s.macroTask},
		{"sweep", sweepCron, s.sweepTask},
	}
	for _, t := range tasks {
		if t.expr == "" {
			continue
		}
		if _, err := s.Cron.AddFunc(t.expr, t.fn); err != nil {
			return fmt.Errorf("register %s task: %w", t.name, err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunReportNow executes the report task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunReportNow() {
	s.reportTask()
}

func (s *Scheduler) reportTask() {
	s.log.Info().Msg("running report task")
	rep, err := s.Runner.Run(s.Ctx, s.Options)
	if err != nil {
		s.log.Error().Err(err).Msg("report run failed")
		s.trySend(failed("Scoring run failed: ", err))
		return
	}
	s.trySend(notifier.FormatLayerReport(rep))
}

func (s *Scheduler) macroTask() {
	s.log.Info().Msg("running macro task")
	rep, err := s.Runner.Macro(s.Ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("macro run failed")
		return
	}
	s.trySend(notifier.FormatMacro(rep))
}

func (s *Scheduler) sweepTask() {
	if s.Cache == nil {
		return
	}
	if n := s.Cache.Sweep(); n > 0 {
		s.log.Debug().Int("removed", n).Msg("cache swept")
	}
}

const helpText = "Available commands:\n" +
	"• /score - score every layer\n" +
	"• /news TICKER - latest news for a ticker\n" +
	"• /macro - breadth, VIX and yield light\n" +
	"• /flags - fundamental flags\n" +
	"• /flag LAYER on|off - toggle a flag\n" +
	"• /clearcache - drop cached data"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // /score@SomeBot
	}
	args := fields[1:]

	switch cmd {
	case "/score":
		rep, err := s.Runner.Run(ctx, s.Options)
		if err != nil {
			return failed("Scoring run failed: ", err)
		}
		return notifier.FormatLayerReport(rep)
	case "/news":
		if len(args) != 1 {
			return "Usage: /news TICKER"
		}
		ticker := strings.ToUpper(args[0])
		res, tagged := s.Runner.News(ctx, ticker, s.Options)
		return notifier.FormatNews(ticker, res, tagged)
	case "/macro":
		rep, err := s.Runner.Macro(ctx)
		if err != nil {
			return failed("Macro run failed: ", err)
		}
		return notifier.FormatMacro(rep)
	case "/flags":
		if s.Flags == nil {
			return "Flags are not configured"
		}
		return notifier.FormatFlags(s.Flags.Names(), s.Flags.Snapshot())
	case "/flag":
		return s.setFlag(args)
	case "/clearcache":
		if s.Cache == nil {
			return "Cache is not configured"
		}
		if err := s.Cache.Clear(ctx); err != nil {
			return failed("Cache clear failed: ", err)
		}
		return "✅ Cache cleared"
	default:
		return helpText
	}
}

// setFlag handles "/flag LAYER on|off". Layer names may contain spaces.
func (s *Scheduler) setFlag(args []string) string {
	const usage = "Usage: /flag LAYER on|off"
	if s.Flags == nil {
		return "Flags are not configured"
	}
	if len(args) < 2 {
		return usage
	}
	var on bool
	switch strings.ToLower(args[len(args)-1]) {
	case "on":
		on = true
	case "off":
		on = false
	default:
		return usage
	}
	layer := strings.Join(args[:len(args)-1], " ")
	for _, name := range s.Flags.Names() {
		if strings.EqualFold(name, layer) {
			layer = name
			break
		}
	}
	if err := s.Flags.Set(layer, on); err != nil {
		return failed("", err)
	}
	state := "off"
	if on {
		state = "ON"
	}
	return fmt.Sprintf("✅ %s fundamental flag %s", html.EscapeString(layer), state)
}

// failed renders an error reply. Replies go out as HTML, so the error text,
// which may echo operator input, is escaped.
func failed(prefix string, err error) string {
	return "❌ " + prefix + html.EscapeString(err.Error())
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		s.log.Info().Msg("notifier disabled, report not delivered")
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
