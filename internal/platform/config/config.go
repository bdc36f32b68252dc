package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultEnvironment      = "local"
	defaultPrimaryTemplate  = "dist/client/index.html"
	defaultFallbackTemplate = "templates/index.html"
	defaultRenderTimeout    = 10 * time.Second
	defaultCatalogCacheTTL  = 30 * time.Second
	defaultMaxOpenConns     = 10
	defaultSiteFile         = "site.yaml"
	defaultAssetsDir        = "public/assets"
	defaultAssetsPrefix     = "/assets/"
	defaultLogLevel         = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	Templates   TemplateConfig
	Render      RenderConfig
	Database    DatabaseConfig
	Site        SiteConfig
	Assets      AssetsConfig
	Telemetry   TelemetryConfig
	Build       BuildConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// TemplateConfig locates the HTML shell the pipeline injects into.
type TemplateConfig struct {
	PrimaryPath  string
	FallbackPath string
	// Cache loads the template once per process. Disable to pick up edits without a restart.
	Cache bool
}

// RenderConfig controls the page render call and how failures surface to clients.
type RenderConfig struct {
	Timeout time.Duration
	// VerboseErrors exposes renderer diagnostics in 500 bodies. Meant for local debugging only.
	VerboseErrors bool
}

// DatabaseConfig points at the catalog database. An empty URL selects the built-in fixture catalog.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	CacheTTL     time.Duration
}

// SiteConfig locates the site metadata file.
type SiteConfig struct {
	File string
}

// AssetsConfig controls static asset serving and the optional asset URL rewrite step.
type AssetsConfig struct {
	Dir     string
	Prefix  string
	BaseURL string
}

// TelemetryConfig groups logging, metrics and tracing switches.
type TelemetryConfig struct {
	LogLevel       string
	MetricsEnabled bool
	TraceProjectID string
}

// BuildConfig carries build metadata surfaced on /healthz.
type BuildConfig struct {
	Version   string
	CommitSHA string
}

// Development reports whether the environment is a local or development one.
func (c Config) Development() bool {
	switch strings.ToLower(c.Environment) {
	case "local", "dev", "development":
		return true
	default:
		return false
	}
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take precedence over
// system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, the .env file, the process environment and
// any explicit map, in increasing order of precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	var invalid []string
	durationField := func(key string, fallback time.Duration) time.Duration {
		d, ok := durationWithDefault(lookup, key, fallback)
		if !ok {
			invalid = append(invalid, key)
		}
		return d
	}

	environment := strings.ToLower(stringWithDefault(lookup, "MCPDIR_ENVIRONMENT", defaultEnvironment))
	port := stringWithDefault(lookup, "MCPDIR_SERVER_PORT", "")
	if port == "" {
		// Cloud Run and most PaaS runtimes inject PORT.
		port = stringWithDefault(lookup, "PORT", defaultPort)
	}

	cfg := Config{
		Environment: environment,
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     durationField("MCPDIR_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationField("MCPDIR_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationField("MCPDIR_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationField("MCPDIR_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Templates: TemplateConfig{
			PrimaryPath:  stringWithDefault(lookup, "MCPDIR_TEMPLATE_PRIMARY", defaultPrimaryTemplate),
			FallbackPath: stringWithDefault(lookup, "MCPDIR_TEMPLATE_FALLBACK", defaultFallbackTemplate),
		},
		Render: RenderConfig{
			Timeout: durationField("MCPDIR_RENDER_TIMEOUT", defaultRenderTimeout),
		},
		Database: DatabaseConfig{
			URL:          stringWithDefault(lookup, "MCPDIR_DATABASE_URL", ""),
			MaxOpenConns: intWithDefault(lookup, "MCPDIR_DATABASE_MAX_OPEN_CONNS", defaultMaxOpenConns),
			CacheTTL:     durationField("MCPDIR_CATALOG_CACHE_TTL", defaultCatalogCacheTTL),
		},
		Site: SiteConfig{
			File: stringWithDefault(lookup, "MCPDIR_SITE_FILE", defaultSiteFile),
		},
		Assets: AssetsConfig{
			Dir:     stringWithDefault(lookup, "MCPDIR_ASSETS_DIR", defaultAssetsDir),
			Prefix:  stringWithDefault(lookup, "MCPDIR_ASSETS_PREFIX", defaultAssetsPrefix),
			BaseURL: stringWithDefault(lookup, "MCPDIR_ASSETS_BASE_URL", ""),
		},
		Telemetry: TelemetryConfig{
			LogLevel:       stringWithDefault(lookup, "MCPDIR_LOG_LEVEL", defaultLogLevel),
			MetricsEnabled: boolWithDefault(lookup, "MCPDIR_METRICS_ENABLED", true),
			TraceProjectID: stringWithDefault(lookup, "MCPDIR_TRACE_PROJECT_ID", ""),
		},
		Build: BuildConfig{
			Version:   stringWithDefault(lookup, "MCPDIR_BUILD_VERSION", "dev"),
			CommitSHA: stringWithDefault(lookup, "MCPDIR_BUILD_COMMIT_SHA", "unknown"),
		},
	}

	// Development defaults favour edit-and-reload and readable failures; production defaults
	// favour a single template read and generic error bodies.
	cfg.Templates.Cache = boolWithDefault(lookup, "MCPDIR_TEMPLATE_CACHE", !cfg.Development())
	cfg.Render.VerboseErrors = boolWithDefault(lookup, "MCPDIR_VERBOSE_ERRORS", cfg.Development())

	if err := validateConfig(cfg, invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config, invalid []string) error {
	missing := append([]string(nil), invalid...)

	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	} else if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Templates.PrimaryPath) == "" && strings.TrimSpace(cfg.Templates.FallbackPath) == "" {
		missing = append(missing, "Templates.PrimaryPath")
	}
	if cfg.Render.Timeout < 0 {
		missing = append(missing, "Render.Timeout")
	}
	if cfg.Database.MaxOpenConns <= 0 {
		missing = append(missing, "Database.MaxOpenConns")
	}
	if cfg.Database.CacheTTL < 0 {
		missing = append(missing, "Database.CacheTTL")
	}
	if !strings.HasPrefix(cfg.Assets.Prefix, "/") {
		missing = append(missing, "Assets.Prefix")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, bool) {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, true
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback, false
	}
	return d, true
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
