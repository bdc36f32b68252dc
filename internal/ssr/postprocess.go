package ssr

import (
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// PostProcessor transforms an assembled document before it is returned.
type PostProcessor interface {
	Process(ctx context.Context, doc string) (string, error)
}

// PostProcessorFunc adapts a function to PostProcessor.
type PostProcessorFunc func(ctx context.Context, doc string) (string, error)

func (f PostProcessorFunc) Process(ctx context.Context, doc string) (string, error) {
	return f(ctx, doc)
}

// AssetRewriter rewrites src and href attributes that start with From so they start with To.
// Typical use maps the bundler's "/assets/" output onto a CDN base URL.
type AssetRewriter struct {
	From string
	To   string
}

var rewrittenAttrs = map[string]struct{}{
	"src":  {},
	"href": {},
}

// Process rewrites matching attributes. Tokens that do not change are copied byte for byte.
func (a AssetRewriter) Process(_ context.Context, doc string) (string, error) {
	if a.From == "" || a.From == a.To || !strings.Contains(doc, a.From) {
		return doc, nil
	}

	var out strings.Builder
	out.Grow(len(doc))
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", err
			}
			return out.String(), nil
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(z.Raw())
			continue
		}

		raw := string(z.Raw())
		tok := z.Token()
		changed := false
		for i, attr := range tok.Attr {
			if _, ok := rewrittenAttrs[attr.Key]; !ok || attr.Namespace != "" {
				continue
			}
			if strings.HasPrefix(attr.Val, a.From) {
				tok.Attr[i].Val = a.To + strings.TrimPrefix(attr.Val, a.From)
				changed = true
			}
		}
		if changed {
			out.WriteString(tok.String())
		} else {
			out.WriteString(raw)
		}
	}
}
