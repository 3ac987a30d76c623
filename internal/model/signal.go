package model

// ScoreResult is the outcome of scoring one layer.
type ScoreResult struct {
	Layer                string   `json:"layer"`
	Score                int      `json:"score"`
	RawScore             int      `json:"raw_score"`
	Clamped              bool     `json:"clamped,omitempty"`
	Performance          float64  `json:"performance"`
	BenchmarkPerformance float64  `json:"benchmark_performance"`
	RelativeStrength     float64  `json:"relative_strength"`
	Fundamental          bool     `json:"fundamental"`
	Evidence             []string `json:"evidence"`
}

// LayerOutcome pairs a layer with either its score or the reason it could
// not be scored. Exactly one of Result and Err is set.
type LayerOutcome struct {
	Layer  LayerConfig
	Result *ScoreResult
	Err    error
}

// OK reports whether the layer was scored.
func (o LayerOutcome) OK() bool { return o.Err == nil && o.Result != nil }
