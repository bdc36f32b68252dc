// Package handlers exposes the HTTP surface: server-rendered pages, probes, metrics and static assets.
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mcpdir/web/internal/platform/httpx"
)

const (
	defaultRequestTimeout = 60 * time.Second
	errorNotFoundCode     = "route_not_found"
	errorMethodCode       = "method_not_allowed"
)

type routerConfig struct {
	middlewares  []func(http.Handler) http.Handler
	health       *HealthHandlers
	metrics      http.Handler
	assetsPrefix string
	assets       http.Handler
	document     http.Handler
}

// Option customises the router before it is built.
type Option func(*routerConfig)

// NewRouter builds the chi router. Probes, metrics and assets have fixed mounts; every other
// path goes to the document handler when one is configured, and to a JSON 404 otherwise.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultRequestTimeout),
		},
		assetsPrefix: "/assets",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.NotFound(routeNotFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}
	if cfg.assets != nil {
		static := http.StripPrefix(cfg.assetsPrefix, cfg.assets)
		r.Method(http.MethodGet, cfg.assetsPrefix+"/*", static)
		r.Method(http.MethodHead, cfg.assetsPrefix+"/*", static)
	}
	if cfg.document != nil {
		r.Handle("/*", cfg.document)
	}
	return r
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError(errorNotFoundCode,
		fmt.Sprintf("no route for %s", r.URL.Path), http.StatusNotFound))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError(errorMethodCode,
		fmt.Sprintf("%s is not supported on %s", r.Method, r.URL.Path), http.StatusMethodNotAllowed))
}

// WithMiddlewares appends global middleware after the defaults.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers replaces the /healthz and /readyz handlers.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.metrics = h
	}
}

// WithAssets serves h under prefix with the prefix stripped. An empty prefix keeps /assets.
func WithAssets(prefix string, h http.Handler) Option {
	return func(cfg *routerConfig) {
		if p := strings.Trim(prefix, "/"); p != "" {
			cfg.assetsPrefix = "/" + p
		}
		cfg.assets = h
	}
}

// WithDocumentHandler sets the catch-all page handler.
func WithDocumentHandler(h http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.document = h
	}
}
