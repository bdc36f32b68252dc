package observability

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mcpdir/web/internal/platform/httpx"
	"github.com/mcpdir/web/internal/platform/requestctx"
)

// InjectLoggerMiddleware stores logger on every request context.
func InjectLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestctx.WithLogger(r.Context(), logger)))
		})
	}
}

// RequestLoggerMiddleware enriches the request logger with request id, method, path and trace
// fields, then logs one line per completed request. Paths in quiet (probes, metrics scrapes) log
// at debug level unless they fail.
func RequestLoggerMiddleware(quiet ...string) func(http.Handler) http.Handler {
	quietPaths := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		quietPaths[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			fields := []zap.Field{
				zap.String("request_id", middleware.GetReqID(ctx)),
				zap.String("method", clean(r.Method, 16)),
				zap.String("path", clean(r.URL.Path, 256)),
			}
			if ip := clean(r.RemoteAddr, 64); ip != "" {
				fields = append(fields, zap.String("remote_ip", ip))
			}
			fields = append(fields, requestctx.TraceFields(ctx)...)
			logger := requestctx.Logger(ctx).With(fields...)

			sw := wrapStatus(w)
			start := time.Now()
			completed := false
			defer func() {
				status := sw.Status()
				if !completed {
					// The handler panicked; recovery sits outside this middleware.
					status = http.StatusInternalServerError
				}
				summary := []zap.Field{
					zap.Int("status", status),
					zap.Duration("latency", time.Since(start)),
					zap.Int64("bytes", sw.bytes),
				}
				if route := routePattern(r); route != "" {
					summary = append(summary, zap.String("route", route))
				}
				switch {
				case status >= http.StatusInternalServerError:
					logger.Error("http request", summary...)
				case status >= http.StatusBadRequest:
					logger.Warn("http request", summary...)
				default:
					if _, ok := quietPaths[r.URL.Path]; ok {
						logger.Debug("http request", summary...)
						return
					}
					logger.Info("http request", summary...)
				}
			}()

			next.ServeHTTP(sw, r.WithContext(requestctx.WithLogger(ctx, logger)))
			completed = true
		})
	}
}

// RecoveryMiddleware turns a handler panic into a plain 500 and logs the stack. fallback is used
// when the request carries no logger.
func RecoveryMiddleware(fallback *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				requestctx.LoggerOr(r.Context(), fallback).Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				httpx.WriteText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// routePattern is only complete after chi has routed the request.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// clean strips control characters so request data cannot forge log lines.
func clean(value string, limit int) string {
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func wrapStatus(w http.ResponseWriter) *statusWriter {
	if sw, ok := w.(*statusWriter); ok {
		return sw
	}
	return &statusWriter{ResponseWriter: w}
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Status reports the status sent so far, 200 if the handler wrote nothing.
func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
