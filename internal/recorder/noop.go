package recorder

import (
	"context"

	"LayerSentinel/internal/pipeline"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) SaveRun(context.Context, *pipeline.Report) error        { return nil }
func (n *NoopRecorder) SaveMacro(context.Context, *pipeline.MacroReport) error { return nil }
func (n *NoopRecorder) Close() error                                           { return nil }

func (n *NoopRecorder) LayerHistory(context.Context, string, int) ([]HistoryPoint, error) {
	return nil, nil
}
