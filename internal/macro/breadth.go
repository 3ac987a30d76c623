// Package macro computes the market breadth, VIX tier and yield shock
// readings from short close windows.
package macro

import (
	"math"

	"LayerSentinel/internal/calculator"
	"LayerSentinel/internal/model"
)

const (
	healthyAbove   = 1.01
	narrowBelow    = 0.99
	vixCalmBelow   = 15.0
	vixElevated    = 25.0
	yieldShockBand = 0.5
)

// Symbols names the series a macro reading is built from.
type Symbols struct {
	Broad string `yaml:"broad" json:"broad"`
	Cap   string `yaml:"cap" json:"cap"`
	VIX   string `yaml:"vix" json:"vix"`
	Yield string `yaml:"yield" json:"yield"`
}

// DefaultSymbols returns RSP / SPY / ^VIX / ^TNX.
func DefaultSymbols() Symbols {
	return Symbols{Broad: "RSP", Cap: "SPY", VIX: "^VIX", Yield: "^TNX"}
}

// List returns the symbols in fetch order.
func (s Symbols) List() []string {
	return []string{s.Broad, s.Cap, s.VIX, s.Yield}
}

// Breadth compares the equal-weight window return against the cap-weight
// window return.
func Breadth(broad, capWeighted []float64) (model.BreadthResult, error) {
	b, err := calculator.WindowRatio(broad)
	if err != nil {
		return model.BreadthResult{}, err
	}
	c, err := calculator.WindowRatio(capWeighted)
	if err != nil {
		return model.BreadthResult{}, err
	}
	if c == 0 {
		return model.BreadthResult{}, calculator.ErrZeroBase
	}
	ratio := b / c
	return model.BreadthResult{Ratio: ratio, Class: ClassifyBreadth(ratio)}, nil
}

// ClassifyBreadth buckets a breadth ratio.
func ClassifyBreadth(ratio float64) model.BreadthClass {
	switch {
	case ratio > healthyAbove:
		return model.BreadthHealthy
	case ratio < narrowBelow:
		return model.BreadthNarrow
	default:
		return model.BreadthNeutral
	}
}

// VIXTierFor buckets the last VIX close. 15 and 25 both fall in NORMAL.
func VIXTierFor(vix float64) model.VIXTier {
	switch {
	case vix < vixCalmBelow:
		return model.VIXCalm
	case vix > vixElevated:
		return model.VIXElevated
	default:
		return model.VIXNormal
	}
}

// YieldShock reports a 10y yield move of more than half a point over the window.
func YieldShock(delta float64) bool {
	return math.Abs(delta) > yieldShockBand
}

// Compute builds a reading from whatever series are present. Each indicator
// is independent; a missing or empty series leaves its fields nil.
func Compute(series map[string]model.PriceSeries, syms Symbols) model.MacroReading {
	var r model.MacroReading

	if br, err := Breadth(series[syms.Broad].Closes(), series[syms.Cap].Closes()); err == nil {
		r.Breadth = &br
	}
	if v, err := calculator.Last(series[syms.VIX].Closes()); err == nil {
		r.VIX = &v
		r.VIXTier = VIXTierFor(v)
	}
	yields := series[syms.Yield].Closes()
	if last, err := calculator.Last(yields); err == nil {
		delta, _ := calculator.WindowDelta(yields)
		r.YieldLast = &last
		r.YieldDelta = &delta
		r.YieldShock = YieldShock(delta)
	}
	return r
}

// Light is the overall macro traffic light.
type Light string

const (
	LightGreen  Light = "GREEN"
	LightYellow Light = "YELLOW"
	LightRed    Light = "RED"
)

// Assess folds a reading into a single light. Elevated fear or a yield shock
// is red; a broad rally without either is green; anything else is yellow.
func Assess(r model.MacroReading) Light {
	if r.VIXTier == model.VIXElevated || r.YieldShock {
		return LightRed
	}
	if r.Breadth != nil && r.Breadth.Class == model.BreadthHealthy && r.VIX != nil {
		return LightGreen
	}
	return LightYellow
}
