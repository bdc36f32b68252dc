package ssr

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mcpdir/web/internal/metrics"
)

// ReadFunc reads a template file by name. os.ReadFile is used unless overridden.
type ReadFunc func(name string) ([]byte, error)

// TemplateStore supplies the HTML template for a document build.
type TemplateStore interface {
	Template(ctx context.Context) (string, error)
}

// TemplateLoader reads the primary template location and falls back to the secondary one.
type TemplateLoader struct {
	primary  string
	fallback string
	read     ReadFunc
	logger   *zap.Logger
	recorder metrics.Recorder
}

// LoaderOption customises a TemplateLoader.
type LoaderOption func(*TemplateLoader)

// WithReadFunc overrides how template files are read.
func WithReadFunc(fn ReadFunc) LoaderOption {
	return func(l *TemplateLoader) {
		if fn != nil {
			l.read = fn
		}
	}
}

// WithLoaderLogger sets the logger used for fallback notices.
func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *TemplateLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLoaderRecorder sets the metrics recorder counting fallback loads.
func WithLoaderRecorder(rec metrics.Recorder) LoaderOption {
	return func(l *TemplateLoader) {
		if rec != nil {
			l.recorder = rec
		}
	}
}

// NewTemplateLoader builds a loader for the production template at primary and the
// development template at fallback.
func NewTemplateLoader(primary, fallback string, opts ...LoaderOption) *TemplateLoader {
	l := &TemplateLoader{
		primary:  strings.TrimSpace(primary),
		fallback: strings.TrimSpace(fallback),
		read:     os.ReadFile,
		logger:   zap.NewNop(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load reads the template. Failure of both locations yields *TemplateUnavailableError.
func (l *TemplateLoader) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, primaryErr := l.readPath(l.primary)
	if primaryErr == nil {
		return content, nil
	}

	content, fallbackErr := l.readPath(l.fallback)
	if fallbackErr == nil {
		l.recorder.IncTemplateFallback()
		l.logger.Debug("primary template unavailable, using fallback",
			zap.String("primary", l.primary),
			zap.String("fallback", l.fallback),
			zap.Error(primaryErr),
		)
		return content, nil
	}

	return "", &TemplateUnavailableError{
		Primary:     l.primary,
		Fallback:    l.fallback,
		PrimaryErr:  primaryErr,
		FallbackErr: fallbackErr,
	}
}

func (l *TemplateLoader) readPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("path not configured")
	}
	data, err := l.read(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewCachedStore returns a store that loads the template once and serves the same content for
// the life of the process. A failed first load is cached as well; a redeploy replaces both.
func NewCachedStore(loader *TemplateLoader) TemplateStore {
	return &cachedStore{loader: loader}
}

type cachedStore struct {
	loader  *TemplateLoader
	once    sync.Once
	content string
	err     error
}

func (s *cachedStore) Template(ctx context.Context) (string, error) {
	s.once.Do(func() {
		// Detach from the first caller so its cancellation cannot poison the cache.
		s.content, s.err = s.loader.Load(context.WithoutCancel(ctx))
	})
	return s.content, s.err
}

// NewReloadingStore returns a store that reads the template on every call, for local development
// against a live frontend build.
func NewReloadingStore(loader *TemplateLoader) TemplateStore {
	return reloadingStore{loader: loader}
}

type reloadingStore struct {
	loader *TemplateLoader
}

func (s reloadingStore) Template(ctx context.Context) (string, error) {
	return s.loader.Load(ctx)
}

// StaticTemplate serves a fixed template string.
type StaticTemplate string

func (t StaticTemplate) Template(context.Context) (string, error) {
	return string(t), nil
}
