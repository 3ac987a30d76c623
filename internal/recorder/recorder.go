package recorder

import (
	"context"
	"time"

	"LayerSentinel/internal/pipeline"
)

// HistoryPoint is one stored score for a layer.
type HistoryPoint struct {
	RunID            string    `json:"run_id"`
	At               time.Time `json:"at"`
	Score            int       `json:"score"`
	Performance      float64   `json:"performance"`
	RelativeStrength float64   `json:"relative_strength"`
	Fundamental      bool      `json:"fundamental"`
}

// Recorder persists run history for later analysis.
type Recorder interface {
	pipeline.Sink
	LayerHistory(ctx context.Context, layer string, limit int) ([]HistoryPoint, error)
	Close() error
}
