// Package requestctx carries per-request values (logger, trace identifiers) through contexts.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type (
	loggerKey struct{}
	traceKey  struct{}
)

var noop = zap.NewNop()

// TraceInfo identifies the span serving a request. ProjectID, when set, lets log lines link to
// Cloud Trace.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// WithLogger returns a copy of ctx carrying logger. A nil logger clears any inherited one.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the request logger, or a no-op logger when none is set.
func Logger(ctx context.Context) *zap.Logger {
	return LoggerOr(ctx, noop)
}

// LoggerOr returns the request logger, or fallback when none is set.
func LoggerOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback == nil {
		return noop
	}
	return fallback
}

// WithTrace returns a copy of ctx carrying info.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceKey{}, info)
}

// Trace returns the trace info stored on ctx.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceKey{}).(TraceInfo)
	return info, ok
}

// TraceID returns the current trace id or "".
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// TraceFields returns zap fields correlating a log line with its trace. The Cloud Logging keys
// are added only when a project id is known.
func TraceFields(ctx context.Context) []zap.Field {
	info, ok := Trace(ctx)
	if !ok || info.TraceID == "" {
		return nil
	}
	fields := []zap.Field{zap.String("trace_id", info.TraceID), zap.String("span_id", info.SpanID)}
	if info.ProjectID != "" {
		fields = append(fields,
			zap.String("logging.googleapis.com/trace", "projects/"+info.ProjectID+"/traces/"+info.TraceID),
			zap.String("logging.googleapis.com/spanId", info.SpanID),
			zap.Bool("logging.googleapis.com/trace_sampled", info.Sampled),
		)
	}
	return fields
}
