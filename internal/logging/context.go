package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	reportIDKey      contextKey = "report_id"
	correlationIDKey contextKey = "correlation_id"
)

// WithReportID annotates ctx with the report being processed.
func WithReportID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, reportIDKey, id)
}

// ReportIDFromContext returns the report ID if present.
func ReportIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(reportIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCorrelationID annotates ctx with an invocation identifier.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the invocation identifier if present.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(correlationIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ReportIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldReportID, id))
	}
	if id, ok := CorrelationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
