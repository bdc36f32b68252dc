package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpdir/web/internal/platform/requestctx"
)

func TestWriteErrorIncludesRequestAndTraceIDs(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{TraceID: "trace-1"})

	rr := httptest.NewRecorder()
	WriteError(ctx, rr, NewError("route_not_found", "no route\nfor /x", http.StatusNotFound))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "route_not_found", body["error"])
	assert.Equal(t, "no route for /x", body["message"])
	assert.EqualValues(t, 404, body["status"])
	assert.Equal(t, "req-1", body["request_id"])
	assert.Equal(t, "trace-1", body["trace_id"])
}

func TestNewErrorDefaultsAndLimits(t *testing.T) {
	e := NewError(strings.Repeat("c", 100), "boom", 0)
	assert.Equal(t, http.StatusInternalServerError, e.Status)
	assert.Len(t, e.Code, 80)

	rr := httptest.NewRecorder()
	WriteError(context.Background(), rr, Error{Code: "x"})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "request_id")
}

func TestWriteText(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteText(rr, http.StatusInternalServerError, "Internal Server Error")
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "Internal Server Error", rr.Body.String())
}
