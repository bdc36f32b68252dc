package ssr

import (
	"context"

	"github.com/mcpdir/web/internal/seo"
)

const (
	// HeadMarker is replaced by the SEO head fragment.
	HeadMarker = "<!--app-head-->"
	// BodyMarker is replaced by the rendered page markup.
	BodyMarker = "<!--app-html-->"
)

// RenderResult is the page renderer's output for a single path. A nil SEO leaves the head marker empty.
type RenderResult struct {
	Markup string
	SEO    *seo.Data
}

// PageRenderer produces markup and head metadata for a request path (path plus optional query).
// Unknown routes yield not-found markup with nil SEO; errors are reserved for infrastructure failures.
type PageRenderer interface {
	Render(ctx context.Context, path string) (RenderResult, error)
}

// RenderFunc adapts a function to PageRenderer.
type RenderFunc func(ctx context.Context, path string) (RenderResult, error)

func (f RenderFunc) Render(ctx context.Context, path string) (RenderResult, error) {
	return f(ctx, path)
}

// Document is a fully assembled HTML response.
type Document struct {
	Status      int
	ContentType string
	Body        string
}
