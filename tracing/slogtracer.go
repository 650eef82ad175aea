package tracing

import (
	"context"
	"log/slog"
)

// SlogTracer writes every bind event to a structured logger.
type SlogTracer struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogTracer creates a SlogTracer that logs at the given level. A nil
// logger uses slog.Default().
func NewSlogTracer(logger *slog.Logger, level slog.Level) *SlogTracer {
	if logger == nil {
		logger = slog.Default()
	}

	return &SlogTracer{logger: logger, level: level}
}

// StartBind logs the start event.
func (t *SlogTracer) StartBind(e BindStart) {
	t.logger.LogAttrs(context.Background(), t.level, "bind started",
		slog.String(FieldName, e.Name),
		slog.String(FieldEntryPoint, e.EntryPoint.String()),
		slog.String(FieldContextLabel, e.ContextLabel),
		slog.String(FieldActivityID, e.ActivityID.String()),
		slog.String(FieldRelatedActivityID, e.RelatedActivityID.String()),
	)
}

// StopBind logs the stop event.
func (t *SlogTracer) StopBind(e BindStop) {
	t.logger.LogAttrs(context.Background(), t.level, "bind stopped",
		slog.String(FieldName, e.Name),
		slog.String(FieldEntryPoint, e.EntryPoint.String()),
		slog.Bool(FieldSuccess, e.Success),
		slog.String(FieldResultPath, e.ResultPath),
		slog.String(FieldActivityID, e.ActivityID.String()),
	)
}
