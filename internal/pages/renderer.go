// Package pages renders catalog pages as HTML fragments with their head metadata.
package pages

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mcpdir/web/internal/catalog"
	"github.com/mcpdir/web/internal/platform/requestctx"
	"github.com/mcpdir/web/internal/site"
	"github.com/mcpdir/web/internal/ssr"
)

//go:embed templates/*.html
var templateFS embed.FS

const homeFeaturedCount = 6

type pageRequest struct {
	path   string
	query  url.Values
	params *chi.Context
}

type pageFunc func(ctx context.Context, req pageRequest) (ssr.RenderResult, error)

// Renderer implements ssr.PageRenderer for the catalog routes.
type Renderer struct {
	repo     catalog.Repository
	site     site.Settings
	tmpl     *template.Template
	markdown *markdownRenderer
	mux      *chi.Mux
	routes   map[string]pageFunc
}

var _ ssr.PageRenderer = (*Renderer)(nil)

// New builds a Renderer reading from repo.
func New(repo catalog.Repository, settings site.Settings) (*Renderer, error) {
	if repo == nil {
		return nil, errors.New("pages: catalog repository is required")
	}
	tmpl, err := template.New("pages").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("pages: parse templates: %w", err)
	}

	r := &Renderer{
		repo:     repo,
		site:     settings,
		tmpl:     tmpl,
		markdown: newMarkdownRenderer(),
		mux:      chi.NewRouter(),
	}
	r.routes = map[string]pageFunc{
		"/":                  r.home,
		"/servers":           r.servers,
		"/servers/{slug}":    r.server,
		"/categories":        r.categories,
		"/categories/{slug}": r.category,
	}
	// The mux is used for matching only; handlers never run.
	for pattern := range r.routes {
		r.mux.Get(pattern, http.NotFound)
	}
	return r, nil
}

// Render produces the page for path, which may carry a query string. Unknown routes and missing
// entities yield not-found markup with nil SEO.
func (r *Renderer) Render(ctx context.Context, path string) (ssr.RenderResult, error) {
	u, err := url.Parse(path)
	if err != nil {
		return r.notFound(path)
	}
	routePath := u.Path
	if routePath == "" {
		routePath = "/"
	}
	if len(routePath) > 1 {
		routePath = strings.TrimRight(routePath, "/")
	}

	rctx := chi.NewRouteContext()
	if !r.mux.Match(rctx, http.MethodGet, routePath) {
		return r.notFound(routePath)
	}
	page, ok := r.routes[rctx.RoutePattern()]
	if !ok {
		return r.notFound(routePath)
	}

	res, err := page(ctx, pageRequest{path: routePath, query: u.Query(), params: rctx})
	if errors.Is(err, catalog.ErrNotFound) {
		requestctx.Logger(ctx).Debug("catalog entity not found", zap.String("path", routePath))
		return r.notFound(routePath)
	}
	return res, err
}

func (r *Renderer) home(ctx context.Context, _ pageRequest) (ssr.RenderResult, error) {
	featured, err := r.repo.ListServers(ctx, catalog.ListOptions{Sort: catalog.SortPopular, Limit: homeFeaturedCount})
	if err != nil {
		return ssr.RenderResult{}, err
	}
	cats, err := r.repo.ListCategories(ctx)
	if err != nil {
		return ssr.RenderResult{}, err
	}

	markup, err := r.execute("home", homeView{
		SiteName:     r.site.Name,
		Description:  r.site.Description,
		Servers:      featured.Servers,
		TotalServers: featured.Total,
		Categories:   r.categoryViews(cats),
	})
	if err != nil {
		return ssr.RenderResult{}, err
	}
	return ssr.RenderResult{Markup: markup, SEO: r.homeSEO()}, nil
}

func (r *Renderer) servers(ctx context.Context, req pageRequest) (ssr.RenderResult, error) {
	opts, page := r.listOptions(req.query)
	list, err := r.repo.ListServers(ctx, opts)
	if err != nil {
		return ssr.RenderResult{}, err
	}

	view := r.listingView(req, list, opts, page)
	view.Heading = "MCP servers"
	view.Breadcrumbs = []crumb{{Label: "Home", Href: "/"}, {Label: "Servers"}}

	markup, err := r.execute("servers", view)
	if err != nil {
		return ssr.RenderResult{}, err
	}
	return ssr.RenderResult{Markup: markup, SEO: r.serversSEO(req, list, page)}, nil
}

func (r *Renderer) server(ctx context.Context, req pageRequest) (ssr.RenderResult, error) {
	s, err := r.repo.GetServer(ctx, req.params.URLParam("slug"))
	if err != nil {
		return ssr.RenderResult{}, err
	}
	readme, err := r.markdown.Render(s.Readme)
	if err != nil {
		return ssr.RenderResult{}, err
	}
	cats, err := r.serverCategories(ctx, s)
	if err != nil {
		return ssr.RenderResult{}, err
	}

	view := serverView{
		Server:     s,
		Readme:     readme,
		Categories: cats,
		Breadcrumbs: []crumb{
			{Label: "Home", Href: "/"},
			{Label: "Servers", Href: "/servers"},
			{Label: s.Name},
		},
	}
	if !s.UpdatedAt.IsZero() {
		view.Updated = s.UpdatedAt.UTC().Format("Jan 2, 2006")
		view.UpdatedISO = s.UpdatedAt.UTC().Format("2006-01-02")
	}

	markup, err := r.execute("server", view)
	if err != nil {
		return ssr.RenderResult{}, err
	}
	return ssr.RenderResult{Markup: markup, SEO: r.serverSEO(s)}, nil
}

func (r *Renderer) categories(ctx context.Context, _ pageRequest) (ssr.RenderResult, error) {
	cats, err := r.repo.ListCategories(ctx)
	if err != nil {
		return ssr.RenderResult{}, err
	}
	views := r.categoryViews(cats)
	markup, err := r.execute("categories", categoriesView{
		Categories:  views,
		Breadcrumbs: []crumb{{Label: "Home", Href: "/"}, {Label: "Categories"}},
	})
	if err != nil {
		return ssr.RenderResult{}, err
	}
	return ssr.RenderResult{Markup: markup, SEO: r.categoriesSEO(views)}, nil
}

func (r *Renderer) category(ctx context.Context, req pageRequest) (ssr.RenderResult, error) {
	slug := req.params.URLParam("slug")
	c, err := r.repo.GetCategory(ctx, slug)
	if err != nil {
		return ssr.RenderResult{}, err
	}
	opts, page := r.listOptions(req.query)
	list, err := r.repo.ServersByCategory(ctx, c.Slug, opts)
	if err != nil {
		return ssr.RenderResult{}, err
	}

	cv := r.categoryView(c)
	view := r.listingView(req, list, opts, page)
	view.Heading = cv.Name
	view.Description = cv.Description
	view.Breadcrumbs = []crumb{
		{Label: "Home", Href: "/"},
		{Label: "Categories", Href: "/categories"},
		{Label: cv.Name},
	}

	markup, err := r.execute("servers", view)
	if err != nil {
		return ssr.RenderResult{}, err
	}
	return ssr.RenderResult{Markup: markup, SEO: r.categorySEO(req, cv, list, page)}, nil
}

func (r *Renderer) notFound(path string) (ssr.RenderResult, error) {
	markup, err := r.execute("not-found", struct{ Path string }{Path: path})
	if err != nil {
		return ssr.RenderResult{}, err
	}
	return ssr.RenderResult{Markup: markup}, nil
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("pages: execute %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (r *Renderer) serverCategories(ctx context.Context, s catalog.Server) ([]categoryView, error) {
	out := make([]categoryView, 0, len(s.Categories))
	for _, slug := range s.Categories {
		c, err := r.repo.GetCategory(ctx, slug)
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r.categoryView(c))
	}
	return out, nil
}
