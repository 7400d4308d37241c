package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging across chrono.
const (
	FieldRequestID    = "request_id"
	FieldEvaluationID = "evaluation_id"
	FieldComponent    = "component"
	FieldURI          = "uri"

	FieldMethod     = "method"
	FieldPath       = "path"
	FieldDurationMS = "duration_ms"

	FieldError     = "error"
	FieldErrorType = "error_type"
	FieldOffset    = "offset"

	FieldCount = "count"
	FieldSize  = "size"
	FieldFile  = "file"
	FieldURL   = "url"
)

type contextKey string

const (
	requestIDKey    contextKey = "logger_request_id"
	evaluationIDKey contextKey = "logger_evaluation_id"
)

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithEvaluationID adds an evaluation ID to the context for logging
func WithEvaluationID(ctx context.Context, evaluationID string) context.Context {
	return context.WithValue(ctx, evaluationIDKey, evaluationID)
}

// FieldsFromContext extracts logging fields from context as key-value pairs
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		fields = append(fields, FieldRequestID, id)
	}
	if id, ok := ctx.Value(evaluationIDKey).(string); ok && id != "" {
		fields = append(fields, FieldEvaluationID, id)
	}

	return fields
}

// LoggerFromContext returns base with the context's request/evaluation fields attached.
// A nil base falls back to the global Logger.
func LoggerFromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
//
//	svc := lsp.NewService(logger.ComponentLogger("lsp"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
