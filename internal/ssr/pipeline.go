// Package ssr assembles server-rendered HTML documents: it loads the application template, invokes
// the page renderer, and substitutes the head and body markers with the rendered output.
package ssr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mcpdir/web/internal/metrics"
	"github.com/mcpdir/web/internal/platform/requestctx"
	"github.com/mcpdir/web/internal/seo"
)

// ContentTypeHTML is the content type of every successful document.
const ContentTypeHTML = "text/html; charset=utf-8"

// Pipeline builds documents from a template store and a page renderer. It holds no per-request
// state and is safe for concurrent use.
type Pipeline struct {
	templates     TemplateStore
	renderer      PageRenderer
	renderTimeout time.Duration
	post          []PostProcessor
	logger        *zap.Logger
	recorder      metrics.Recorder
	tracer        trace.Tracer
	now           func() time.Time
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithRenderTimeout bounds each renderer call. Zero disables the bound.
func WithRenderTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.renderTimeout = d
		}
	}
}

// WithPostProcessors appends document post-processors, applied in order.
func WithPostProcessors(pp ...PostProcessor) Option {
	return func(p *Pipeline) {
		for _, proc := range pp {
			if proc != nil {
				p.post = append(p.post, proc)
			}
		}
	}
}

// WithLogger sets the fallback logger used when the request context carries none.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(p *Pipeline) {
		if rec != nil {
			p.recorder = rec
		}
	}
}

// WithClock overrides the time source used for duration metrics.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPipeline constructs a Pipeline.
func NewPipeline(templates TemplateStore, renderer PageRenderer, opts ...Option) (*Pipeline, error) {
	if templates == nil {
		return nil, errors.New("ssr: template store is required")
	}
	if renderer == nil {
		return nil, errors.New("ssr: page renderer is required")
	}
	p := &Pipeline{
		templates: templates,
		renderer:  renderer,
		logger:    zap.NewNop(),
		recorder:  metrics.NoopRecorder{},
		tracer:    otel.Tracer("github.com/mcpdir/web/internal/ssr"),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// BuildDocument renders path and injects the result into the template. The returned document is
// complete or the error is non-nil; errors match ErrTemplateUnavailable or ErrRenderFailed.
func (p *Pipeline) BuildDocument(ctx context.Context, path string) (Document, error) {
	start := p.now()
	path = NormalizePath(path)

	ctx, span := p.tracer.Start(ctx, "ssr.BuildDocument", trace.WithAttributes(attribute.String("ssr.path", path)))
	defer span.End()

	logger := p.loggerFor(ctx).With(zap.String("path", path))

	doc, err := p.build(ctx, logger, path)
	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, ErrTemplateUnavailable):
		outcome = metrics.OutcomeTemplateUnavailable
	case err != nil:
		outcome = metrics.OutcomeRenderFailed
	}
	p.recorder.ObserveBuildDuration(outcome, p.now().Sub(start))
	span.SetAttributes(attribute.String("ssr.outcome", string(outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(outcome))
		return Document{}, err
	}
	return doc, nil
}

func (p *Pipeline) build(ctx context.Context, logger *zap.Logger, path string) (Document, error) {
	var (
		template    string
		result      RenderResult
		templateErr error
		renderErr   error
	)

	// No shared cancellation: a fast render failure must not abort the template read and be
	// misreported as a template problem.
	var g errgroup.Group
	g.Go(func() error {
		template, templateErr = p.templates.Template(ctx)
		return templateErr
	})
	g.Go(func() error {
		result, renderErr = p.render(ctx, path)
		return renderErr
	})
	_ = g.Wait()

	if templateErr != nil && ctx.Err() != nil && errors.Is(templateErr, ctx.Err()) {
		// The request itself was cancelled; that is not a template fault.
		if renderErr != nil {
			return Document{}, renderErr
		}
		return Document{}, &RenderFailedError{Path: path, Err: templateErr}
	}
	if templateErr != nil {
		if !errors.Is(templateErr, ErrTemplateUnavailable) {
			templateErr = &TemplateUnavailableError{PrimaryErr: templateErr}
		}
		return Document{}, templateErr
	}
	if renderErr != nil {
		return Document{}, renderErr
	}

	head, err := seo.HeadFragment(result.SEO)
	if err != nil {
		return Document{}, &RenderFailedError{Path: path, Err: err}
	}

	body, missing := Inject(template, head, result.Markup)
	for _, marker := range missing {
		p.recorder.IncMarkerMissing(markerLabel(marker))
		logger.Warn("template marker missing, substitution skipped", zap.String("marker", marker))
	}

	for _, proc := range p.post {
		body, err = proc.Process(ctx, body)
		if err != nil {
			return Document{}, &RenderFailedError{Path: path, Err: fmt.Errorf("post-process: %w", err)}
		}
	}

	return Document{
		Status:      http.StatusOK,
		ContentType: ContentTypeHTML,
		Body:        body,
	}, nil
}

type renderOutcome struct {
	result RenderResult
	err    error
}

func (p *Pipeline) render(ctx context.Context, path string) (RenderResult, error) {
	if p.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.renderTimeout)
		defer cancel()
	}

	start := p.now()
	done := make(chan renderOutcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- renderOutcome{err: fmt.Errorf("renderer panic: %v", rec)}
			}
		}()
		res, err := p.renderer.Render(ctx, path)
		done <- renderOutcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		p.recorder.ObserveRenderDuration(p.now().Sub(start))
		if out.err != nil {
			return RenderResult{}, &RenderFailedError{Path: path, Err: out.err}
		}
		return out.result, nil
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) && p.renderTimeout > 0 {
			err = fmt.Errorf("render exceeded %s: %w", p.renderTimeout, err)
		}
		return RenderResult{}, &RenderFailedError{Path: path, Err: err}
	}
}

func (p *Pipeline) loggerFor(ctx context.Context) *zap.Logger {
	return requestctx.LoggerOr(ctx, p.logger)
}

// NormalizePath maps an empty request path to "/". Query strings are kept.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if strings.HasPrefix(path, "?") {
		return "/" + path
	}
	return path
}

// Inject replaces the first occurrence of each marker in template with head and markup.
// Marker positions are taken from the template before any substitution, so marker text inside
// head or markup is never treated as a marker. Absent markers are returned in missing.
func Inject(template, head, markup string) (string, []string) {
	type splice struct {
		at     int
		marker string
		text   string
	}
	var (
		splices []splice
		missing []string
	)
	for _, s := range []splice{{marker: HeadMarker, text: head}, {marker: BodyMarker, text: markup}} {
		idx := strings.Index(template, s.marker)
		if idx < 0 {
			missing = append(missing, s.marker)
			continue
		}
		s.at = idx
		splices = append(splices, s)
	}
	sort.Slice(splices, func(i, j int) bool { return splices[i].at < splices[j].at })

	var b strings.Builder
	b.Grow(len(template) + len(head) + len(markup))
	cursor := 0
	for _, s := range splices {
		b.WriteString(template[cursor:s.at])
		b.WriteString(s.text)
		cursor = s.at + len(s.marker)
	}
	b.WriteString(template[cursor:])
	return b.String(), missing
}

func markerLabel(marker string) string {
	if marker == HeadMarker {
		return "head"
	}
	return "body"
}
