// Package httpx holds the response writers shared by the HTTP handlers.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mcpdir/web/internal/platform/requestctx"
)

// Error is the JSON body returned by the router and probe endpoints. Page routes never use it.
type Error struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// NewError builds an Error. A zero status means 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: truncate(code, 80), Message: truncate(message, 512), Status: status}
}

type errorBody struct {
	Error
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// WriteError writes e as JSON, adding the request and trace ids found on ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, e Error) {
	if e.Status == 0 {
		e.Status = http.StatusInternalServerError
	}
	WriteJSON(w, e.Status, errorBody{
		Error:     e,
		RequestID: truncate(middleware.GetReqID(ctx), 80),
		TraceID:   requestctx.TraceID(ctx),
	})
}

// WriteJSON writes payload with status. Responses are never cached.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteText writes a plain text body. Page failures use it since browsers show it as is.
func WriteText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
