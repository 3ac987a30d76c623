package strategy

import (
	"errors"
	"fmt"

	"LayerSentinel/internal/calculator"
	"LayerSentinel/internal/model"
)

var (
	// ErrDataUnavailable marks a layer whose series is absent, empty or too short.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrConfigInconsistency marks a layer that is unknown or misconfigured.
	ErrConfigInconsistency = errors.New("configuration inconsistency")
)

// Engine scores layers against a benchmark. It holds no state beyond its
// read-only weights and is safe for concurrent use.
type Engine struct {
	Weights   model.ScoringWeights
	Benchmark string
}

// NewEngine creates an Engine.
func NewEngine(weights model.ScoringWeights, benchmark string) *Engine {
	return &Engine{Weights: weights, Benchmark: benchmark}
}

// ScoreLayer computes momentum, relative strength and fundamental awards for
// one layer. series must contain the layer's ETF and the benchmark.
func (e *Engine) ScoreLayer(layer model.LayerConfig, series map[string]model.PriceSeries, fundamental bool) (*model.ScoreResult, error) {
	if layer.ETF == "" {
		return nil, fmt.Errorf("%w: layer %q has no etf symbol", ErrConfigInconsistency, layer.Name)
	}
	if e.Benchmark == "" {
		return nil, fmt.Errorf("%w: no benchmark symbol", ErrConfigInconsistency)
	}

	performance, err := performanceOf(series, layer.ETF)
	if err != nil {
		return nil, err
	}
	benchPerformance, err := performanceOf(series, e.Benchmark)
	if err != nil {
		return nil, err
	}
	rs := performance - benchPerformance

	raw, evidence := sumAwards(
		e.scoreMomentum(performance),
		e.scoreRelativeStrength(rs),
		e.scoreFundamental(fundamental),
	)
	score, clamped := clamp(raw, e.Weights)

	return &model.ScoreResult{
		Layer:                layer.Name,
		Score:                score,
		RawScore:             raw,
		Clamped:              clamped,
		Performance:          performance,
		BenchmarkPerformance: benchPerformance,
		RelativeStrength:     rs,
		Fundamental:          fundamental,
		Evidence:             evidence,
	}, nil
}

// ScoreAll scores every layer independently. The result has one outcome per
// layer, in configuration order; failures stay local to their layer.
func (e *Engine) ScoreAll(layers []model.LayerConfig, series map[string]model.PriceSeries, flags map[string]bool) []model.LayerOutcome {
	out := make([]model.LayerOutcome, 0, len(layers))
	for _, l := range layers {
		res, err := e.ScoreLayer(l, series, flags[l.Name])
		out = append(out, model.LayerOutcome{Layer: l, Result: res, Err: err})
	}
	return out
}

// ScoreNamed scores the named layers. A name missing from layers yields a
// configuration-inconsistency outcome for that name only.
func (e *Engine) ScoreNamed(names []string, layers []model.LayerConfig, series map[string]model.PriceSeries, flags map[string]bool) []model.LayerOutcome {
	byName := make(map[string]model.LayerConfig, len(layers))
	for _, l := range layers {
		byName[l.Name] = l
	}
	out := make([]model.LayerOutcome, 0, len(names))
	for _, name := range names {
		l, ok := byName[name]
		if !ok {
			out = append(out, model.LayerOutcome{
				Layer: model.LayerConfig{Name: name},
				Err:   fmt.Errorf("%w: layer %q is not configured", ErrConfigInconsistency, name),
			})
			continue
		}
		res, err := e.ScoreLayer(l, series, flags[name])
		out = append(out, model.LayerOutcome{Layer: l, Result: res, Err: err})
	}
	return out
}

// Top returns the highest-scoring successful outcome. Ties keep the earlier
// layer. ok is false when no layer was scored.
func Top(outcomes []model.LayerOutcome) (model.LayerOutcome, bool) {
	var best model.LayerOutcome
	found := false
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		if !found || o.Result.Score > best.Result.Score {
			best = o
			found = true
		}
	}
	return best, found
}

// Reason maps a layer error to a short metric label.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, ErrConfigInconsistency):
		return "config_inconsistency"
	default:
		return "other"
	}
}

func performanceOf(series map[string]model.PriceSeries, symbol string) (float64, error) {
	s, ok := series[symbol]
	if !ok || s.Len() == 0 {
		return 0, fmt.Errorf("%w: no series for %s", ErrDataUnavailable, symbol)
	}
	p, err := calculator.Performance(s.Closes(), LookbackPeriods)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, symbol, err)
	}
	return p, nil
}
