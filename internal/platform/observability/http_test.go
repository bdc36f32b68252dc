package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedRouter(t *testing.T, level zapcore.Level) (chi.Router, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(level)
	logger := zap.New(core)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		InjectLoggerMiddleware(logger),
		TraceMiddleware("mcpdir-test"),
		RecoveryMiddleware(logger),
		RequestLoggerMiddleware("/healthz"),
	)
	r.Get("/servers/{slug}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	r.Get("/panic", func(http.ResponseWriter, *http.Request) {
		panic("renderer exploded")
	})
	return r, logs
}

func TestRequestLoggerLogsCompletion(t *testing.T) {
	router, logs := newObservedRouter(t, zapcore.InfoLevel)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/servers/github", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/servers/github", fields["path"])
	assert.Equal(t, "/servers/{slug}", fields["route"])
	assert.EqualValues(t, 200, fields["status"])
	assert.EqualValues(t, 2, fields["bytes"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestRequestLoggerLevels(t *testing.T) {
	router, logs := newObservedRouter(t, zapcore.InfoLevel)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, 0, logs.Len(), "quiet paths log at debug")

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestRecoveryMiddlewareAnswers500(t *testing.T) {
	router, logs := newObservedRouter(t, zapcore.InfoLevel)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal Server Error", rr.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	requests := logs.FilterMessage("http request").All()
	require.Len(t, requests, 1)
	assert.Equal(t, zapcore.ErrorLevel, requests[0].Level)
}

func TestTraceMiddlewareContinuesIncomingTrace(t *testing.T) {
	router, logs := newObservedRouter(t, zapcore.InfoLevel)

	req := httptest.NewRequest(http.MethodGet, "/servers/github", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rr.Header().Get(TraceHeader))
	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "projects/mcpdir-test/traces/4bf92f3577b34da6a3ce929d0e0e4736", fields["logging.googleapis.com/trace"])
}

func TestClean(t *testing.T) {
	assert.Equal(t, "/serversinjected", clean("/servers\n\rinjected", 64))
	assert.Equal(t, "GET", clean(" GET ", 16))
	assert.Len(t, clean("abcdefghij", 4), 4)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggerOptions{Level: "not-a-level"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger(LoggerOptions{Level: "debug", Development: true, Output: "stderr"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
