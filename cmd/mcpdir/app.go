package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mcpdir/web/internal/catalog"
	"github.com/mcpdir/web/internal/handlers"
	"github.com/mcpdir/web/internal/health"
	"github.com/mcpdir/web/internal/metrics"
	"github.com/mcpdir/web/internal/pages"
	"github.com/mcpdir/web/internal/platform/config"
	"github.com/mcpdir/web/internal/platform/observability"
	"github.com/mcpdir/web/internal/site"
	"github.com/mcpdir/web/internal/ssr"
)

// app holds the wired components shared by the serve and render commands.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	pipeline  *ssr.Pipeline
	templates ssr.TemplateStore
	repo      catalog.Repository
	telemetry telemetry
	closers   []func() error
}

type telemetry struct {
	handler  http.Handler
	recorder metrics.Recorder
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(config.WithEnvFile(opts.envFile))
	if err != nil {
		return config.Config{}, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config, output string) (*zap.Logger, error) {
	logger, err := observability.NewLogger(observability.LoggerOptions{
		Level:       cfg.Telemetry.LogLevel,
		Development: cfg.Development(),
		Output:      output,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise logger: %w", err)
	}
	return logger.Named("mcpdir"), nil
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.telemetry = telemetry{recorder: metrics.NoopRecorder{}}
	if cfg.Telemetry.MetricsEnabled {
		reg := metrics.NewRegistry()
		a.telemetry = telemetry{
			handler:  metrics.HTTPHandler(reg),
			recorder: metrics.NewPrometheusRecorder(reg),
		}
	}

	settings, err := site.Load(cfg.Site.File)
	if err != nil {
		return nil, err
	}

	repo, err := a.openCatalog(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.repo = repo

	renderer, err := pages.New(repo, settings)
	if err != nil {
		a.Close()
		return nil, err
	}

	loader := ssr.NewTemplateLoader(cfg.Templates.PrimaryPath, cfg.Templates.FallbackPath,
		ssr.WithLoaderLogger(logger.Named("template")),
		ssr.WithLoaderRecorder(a.telemetry.recorder),
	)
	if cfg.Templates.Cache {
		a.templates = ssr.NewCachedStore(loader)
	} else {
		a.templates = ssr.NewReloadingStore(loader)
	}

	pipelineOpts := []ssr.Option{
		ssr.WithRenderTimeout(cfg.Render.Timeout),
		ssr.WithLogger(logger.Named("ssr")),
		ssr.WithRecorder(a.telemetry.recorder),
	}
	if cfg.Assets.BaseURL != "" {
		pipelineOpts = append(pipelineOpts, ssr.WithPostProcessors(ssr.AssetRewriter{
			From: cfg.Assets.Prefix,
			To:   cfg.Assets.BaseURL,
		}))
	}
	a.pipeline, err = ssr.NewPipeline(a.templates, renderer, pipelineOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openCatalog(ctx context.Context) (catalog.Repository, error) {
	var repo catalog.Repository
	if a.cfg.Database.URL == "" {
		a.logger.Info("no database configured; serving the built-in sample catalog")
		repo = catalog.NewStaticRepository(catalog.Fixtures())
	} else {
		db, err := catalog.OpenPostgres(a.cfg.Database.URL, a.cfg.Database.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("catalog: database handle: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)
		gormRepo := catalog.NewGormRepository(db)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := gormRepo.Ping(pingCtx); err != nil {
			a.logger.Warn("catalog database not reachable at startup", zap.Error(err))
		}
		repo = gormRepo
	}
	if a.cfg.Database.CacheTTL > 0 {
		repo = catalog.NewCachedRepository(repo, a.cfg.Database.CacheTTL)
	}
	return repo, nil
}

func (a *app) healthChecker(startedAt time.Time) (*health.Checker, error) {
	checks := []health.Check{
		{
			Name:     "template",
			Critical: true,
			Check: func(ctx context.Context) error {
				_, err := a.templates.Template(ctx)
				return err
			},
		},
		{
			Name:    "catalog",
			Timeout: 2 * time.Second,
			Check:   a.repo.Ping,
		},
	}
	return health.NewChecker(checks, health.WithBuildInfo(a.buildInfo(startedAt)))
}

func (a *app) buildInfo(startedAt time.Time) health.BuildInfo {
	return health.BuildInfo{
		Version:     a.cfg.Build.Version,
		CommitSHA:   a.cfg.Build.CommitSHA,
		Environment: a.cfg.Environment,
		StartedAt:   startedAt,
	}
}

func (a *app) router(startedAt time.Time) (http.Handler, error) {
	checker, err := a.healthChecker(startedAt)
	if err != nil {
		return nil, err
	}

	opts := []handlers.Option{
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(a.logger.Named("http")),
			observability.TraceMiddleware(a.cfg.Telemetry.TraceProjectID),
			observability.RecoveryMiddleware(a.logger),
			observability.RequestLoggerMiddleware("/healthz", "/readyz", "/metrics"),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithHealthChecker(checker),
			handlers.WithHealthBuildInfo(a.buildInfo(startedAt)),
		)),
		handlers.WithDocumentHandler(handlers.NewDocumentHandler(a.pipeline, a.cfg.Render.VerboseErrors)),
	}
	if a.telemetry.handler != nil {
		opts = append(opts, handlers.WithMetricsHandler(a.telemetry.handler))
	}
	if info, err := os.Stat(a.cfg.Assets.Dir); err == nil && info.IsDir() {
		opts = append(opts, handlers.WithAssets(a.cfg.Assets.Prefix, handlers.AssetsWithCache(os.DirFS(a.cfg.Assets.Dir))))
	} else {
		a.logger.Info("static asset directory not found; /assets is not served", zap.String("dir", a.cfg.Assets.Dir))
	}
	return handlers.NewRouter(opts...), nil
}

// Close releases database connections.
func (a *app) Close() {
	var errs []error
	for _, closer := range a.closers {
		errs = append(errs, closer())
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("close error", zap.Error(err))
	}
}
