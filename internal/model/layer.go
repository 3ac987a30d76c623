package model

// LayerConfig identifies one investment layer. Values are built once at
// startup and passed by value; nothing mutates them afterwards.
type LayerConfig struct {
	Name        string   `yaml:"name" json:"name"`
	ETF         string   `yaml:"etf" json:"etf"`
	Stock       string   `yaml:"stock" json:"stock"`
	NewsTicker  string   `yaml:"news_ticker" json:"news_ticker"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
	Description string   `yaml:"description" json:"description"`

	// Fundamental seeds the manual catalyst flag for this layer.
	Fundamental bool `yaml:"fundamental" json:"fundamental"`
}

// NewsSymbol returns the ticker used for news lookups, falling back to the
// representative stock when no dedicated news ticker is configured.
func (l LayerConfig) NewsSymbol() string {
	if l.NewsTicker != "" {
		return l.NewsTicker
	}
	return l.Stock
}

// ScoringWeights holds the thresholds and point awards of the layer score.
type ScoringWeights struct {
	MomentumThreshold    float64 `yaml:"momentum_threshold" json:"momentum_threshold"`
	MomentumPoints       int     `yaml:"momentum_points" json:"momentum_points"`
	RelStrengthThreshold float64 `yaml:"rel_strength_threshold" json:"rel_strength_threshold"`
	RelStrengthPoints    int     `yaml:"rel_strength_points" json:"rel_strength_points"`
	FundamentalBonus     int     `yaml:"fundamental_bonus" json:"fundamental_bonus"`
	MaxScore             int     `yaml:"max_score" json:"max_score"`
}

// DefaultWeights returns the stock weight set: 15%/3, 1%/3, bonus 4, max 10.
func DefaultWeights() ScoringWeights {
	return ScoringWeights{
		MomentumThreshold:    15,
		MomentumPoints:       3,
		RelStrengthThreshold: 1,
		RelStrengthPoints:    3,
		FundamentalBonus:     4,
		MaxScore:             10,
	}
}

// MaxAward is the largest sum the three rules can award under these weights.
func (w ScoringWeights) MaxAward() int {
	m := w.MomentumPoints
	if m < 1 {
		m = 1
	}
	r := w.RelStrengthPoints
	if r < 1 {
		r = 1
	}
	return m + r + w.FundamentalBonus
}
