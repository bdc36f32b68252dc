package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Environment != "local" {
		t.Errorf("expected local environment, got %s", cfg.Environment)
	}
	if cfg.Templates.PrimaryPath != defaultPrimaryTemplate || cfg.Templates.FallbackPath != defaultFallbackTemplate {
		t.Errorf("unexpected template paths: %+v", cfg.Templates)
	}
	if cfg.Templates.Cache {
		t.Errorf("expected template cache disabled in local environment")
	}
	if !cfg.Render.VerboseErrors {
		t.Errorf("expected verbose errors in local environment")
	}
	if cfg.Render.Timeout != defaultRenderTimeout {
		t.Errorf("unexpected render timeout: %s", cfg.Render.Timeout)
	}
	if cfg.Database.URL != "" {
		t.Errorf("expected no database url, got %q", cfg.Database.URL)
	}
	if !cfg.Telemetry.MetricsEnabled {
		t.Errorf("expected metrics enabled by default")
	}
	if cfg.Build.Version != "dev" {
		t.Errorf("expected dev build version, got %s", cfg.Build.Version)
	}
}

func TestLoadProductionDefaultsAreHardened(t *testing.T) {
	env := map[string]string{
		"MCPDIR_ENVIRONMENT": "prod",
	}
	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.Templates.Cache {
		t.Errorf("expected template cache in production")
	}
	if cfg.Render.VerboseErrors {
		t.Errorf("expected generic error bodies in production")
	}
	if cfg.Development() {
		t.Errorf("prod must not report development")
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"MCPDIR_ENVIRONMENT":             "staging",
		"MCPDIR_SERVER_PORT":             "9090",
		"MCPDIR_SERVER_WRITE_TIMEOUT":    "45s",
		"MCPDIR_TEMPLATE_PRIMARY":        "/srv/dist/index.html",
		"MCPDIR_TEMPLATE_FALLBACK":       "/srv/index.html",
		"MCPDIR_TEMPLATE_CACHE":          "false",
		"MCPDIR_RENDER_TIMEOUT":          "0s",
		"MCPDIR_VERBOSE_ERRORS":          "yes",
		"MCPDIR_DATABASE_URL":            "postgres://user:pass@db:5432/catalog",
		"MCPDIR_DATABASE_MAX_OPEN_CONNS": "4",
		"MCPDIR_CATALOG_CACHE_TTL":       "2m",
		"MCPDIR_ASSETS_BASE_URL":         "https://cdn.example.com/assets/",
		"MCPDIR_METRICS_ENABLED":         "off",
		"MCPDIR_BUILD_VERSION":           "1.4.2",
		"PORT":                           "7070",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("explicit port must win over PORT, got %s", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 45*time.Second {
		t.Errorf("unexpected write timeout: %s", cfg.Server.WriteTimeout)
	}
	if cfg.Templates.PrimaryPath != "/srv/dist/index.html" || cfg.Templates.FallbackPath != "/srv/index.html" {
		t.Errorf("unexpected template paths: %+v", cfg.Templates)
	}
	if cfg.Templates.Cache {
		t.Errorf("expected template cache override to false")
	}
	if cfg.Render.Timeout != 0 {
		t.Errorf("expected render timeout disabled, got %s", cfg.Render.Timeout)
	}
	if !cfg.Render.VerboseErrors {
		t.Errorf("expected verbose errors override")
	}
	if cfg.Database.MaxOpenConns != 4 || cfg.Database.CacheTTL != 2*time.Minute {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Assets.BaseURL != "https://cdn.example.com/assets/" {
		t.Errorf("unexpected assets base url: %s", cfg.Assets.BaseURL)
	}
	if cfg.Telemetry.MetricsEnabled {
		t.Errorf("expected metrics disabled")
	}
	if cfg.Build.Version != "1.4.2" {
		t.Errorf("unexpected build version: %s", cfg.Build.Version)
	}
}

func TestLoadFallsBackToPlatformPort(t *testing.T) {
	cfg, err := Load(WithEnvMap(map[string]string{"PORT": "3000"}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "3000" {
		t.Fatalf("expected PORT fallback, got %s", cfg.Server.Port)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nexport MCPDIR_SITE_FILE=\"config/site.yaml\"\nMCPDIR_LOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithEnvMap(map[string]string{"MCPDIR_LOG_LEVEL": "warn"}), WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Site.File != "config/site.yaml" {
		t.Errorf("expected site file from .env, got %s", cfg.Site.File)
	}
	if cfg.Telemetry.LogLevel != "warn" {
		t.Errorf("explicit map must win over .env, got %s", cfg.Telemetry.LogLevel)
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvFile(filepath.Join(t.TempDir(), "absent.env")))
	if err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"MCPDIR_SERVER_PORT":             "http",
		"MCPDIR_RENDER_TIMEOUT":          "soon",
		"MCPDIR_DATABASE_MAX_OPEN_CONNS": "0",
		"MCPDIR_ASSETS_PREFIX":           "assets",
	}

	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := map[string]bool{}
	for _, f := range verr.Fields() {
		fields[f] = true
	}
	for _, want := range []string{"MCPDIR_RENDER_TIMEOUT", "Server.Port", "Database.MaxOpenConns", "Assets.Prefix"} {
		if !fields[want] {
			t.Errorf("expected %s in validation fields, got %v", want, verr.Fields())
		}
	}
}
