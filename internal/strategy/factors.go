package strategy

import (
	"fmt"

	"LayerSentinel/internal/model"
)

const (
	// LookbackPeriods is ~6 months of trading days. Lookback is by index
	// offset into the series, never by calendar date.
	LookbackPeriods = 126

	moderateMomentum = 5.0
	paceFloor        = -2.0
	partialPoints    = 1
)

// tier awards points when a value is strictly above a threshold.
type tier struct {
	Above  float64
	Points int
	Label  string
}

// award is one rule's contribution to a layer score.
type award struct {
	Points   int
	Evidence string
}

// mapTier returns the first tier whose threshold the value exceeds.
func mapTier(value float64, tiers []tier) (tier, bool) {
	for _, t := range tiers {
		if value > t.Above {
			return t, true
		}
	}
	return tier{}, false
}

func (e *Engine) momentumTiers() []tier {
	return []tier{
		{Above: e.Weights.MomentumThreshold, Points: e.Weights.MomentumPoints, Label: "strong"},
		{Above: moderateMomentum, Points: partialPoints, Label: "moderate"},
	}
}

func (e *Engine) relStrengthTiers() []tier {
	return []tier{
		{Above: e.Weights.RelStrengthThreshold, Points: e.Weights.RelStrengthPoints, Label: "outperforms"},
		{Above: paceFloor, Points: partialPoints, Label: "keeping pace"},
	}
}

// scoreMomentum awards points for the layer's own 6-month performance.
func (e *Engine) scoreMomentum(performance float64) award {
	if t, ok := mapTier(performance, e.momentumTiers()); ok {
		return award{
			Points:   t.Points,
			Evidence: fmt.Sprintf("Momentum: %+.1f%% (%s)", performance, t.Label),
		}
	}
	return award{Evidence: fmt.Sprintf("Momentum: %+.1f%%", performance)}
}

// scoreRelativeStrength awards points for beating the benchmark.
func (e *Engine) scoreRelativeStrength(rs float64) award {
	if t, ok := mapTier(rs, e.relStrengthTiers()); ok {
		return award{
			Points:   t.Points,
			Evidence: fmt.Sprintf("Relative strength: %+.1f%% vs %s (%s)", rs, e.Benchmark, t.Label),
		}
	}
	return award{Evidence: fmt.Sprintf("Relative strength: %+.1f%% vs %s (underperforms)", rs, e.Benchmark)}
}

// scoreFundamental applies the manual catalyst bonus.
func (e *Engine) scoreFundamental(active bool) award {
	if active {
		return award{
			Points:   e.Weights.FundamentalBonus,
			Evidence: fmt.Sprintf("Fundamental: catalyst active (+%d)", e.Weights.FundamentalBonus),
		}
	}
	return award{Evidence: "Fundamental: no active catalyst"}
}

func sumAwards(awards ...award) (int, []string) {
	total := 0
	evidence := make([]string, 0, len(awards))
	for _, a := range awards {
		total += a.Points
		evidence = append(evidence, a.Evidence)
	}
	return total, evidence
}

// clamp bounds a raw sum to [0, max]. A non-positive max disables the cap.
func clamp(raw int, w model.ScoringWeights) (int, bool) {
	if raw < 0 {
		return 0, true
	}
	if w.MaxScore > 0 && raw > w.MaxScore {
		return w.MaxScore, true
	}
	return raw, false
}
