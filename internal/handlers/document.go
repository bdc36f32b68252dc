package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mcpdir/web/internal/platform/httpx"
	"github.com/mcpdir/web/internal/platform/requestctx"
	"github.com/mcpdir/web/internal/ssr"
)

const genericErrorBody = "Internal Server Error"

// DocumentBuilder produces a full HTML document for a request path.
type DocumentBuilder interface {
	BuildDocument(ctx context.Context, path string) (ssr.Document, error)
}

// DocumentHandler serves server-rendered pages.
type DocumentHandler struct {
	builder DocumentBuilder
	verbose bool
}

// NewDocumentHandler wraps builder. When verbose is set, render failures include their
// diagnostic text in the response body.
func NewDocumentHandler(builder DocumentBuilder, verbose bool) *DocumentHandler {
	return &DocumentHandler{builder: builder, verbose: verbose}
}

func (h *DocumentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx)
	path := r.URL.RequestURI()

	doc, err := h.builder.BuildDocument(ctx, path)
	if err != nil {
		h.writeFailure(w, logger, path, err)
		return
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = ssr.ContentTypeHTML
	}
	status := doc.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write([]byte(doc.Body))
}

func (h *DocumentHandler) writeFailure(w http.ResponseWriter, logger *zap.Logger, path string, err error) {
	var rendered *ssr.RenderFailedError
	switch {
	case errors.Is(err, ssr.ErrTemplateUnavailable):
		logger.Error("document template unavailable", zap.String("path", path), zap.Error(err))
		httpx.WriteText(w, http.StatusInternalServerError, genericErrorBody)
	case errors.As(err, &rendered):
		logger.Error("document render failed", zap.String("path", path), zap.Error(err))
		body := genericErrorBody
		if h.verbose {
			body = rendered.Diagnostic()
		}
		httpx.WriteText(w, http.StatusInternalServerError, body)
	default:
		logger.Error("document build failed", zap.String("path", path), zap.Error(err))
		httpx.WriteText(w, http.StatusInternalServerError, genericErrorBody)
	}
}
