package handlers

import (
	"net/http"
	"time"

	"github.com/mcpdir/web/internal/health"
	"github.com/mcpdir/web/internal/platform/httpx"
)

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	checker *health.Checker
	build   health.BuildInfo
	now     func() time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// NewHealthHandlers builds probe handlers. Without a checker /readyz reports ok with no checks.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.now()
	}
	return h
}

// WithHealthChecker sets the dependency checker used by /readyz.
func WithHealthChecker(checker *health.Checker) HealthOption {
	return func(h *HealthHandlers) {
		h.checker = checker
	}
}

// WithHealthBuildInfo attaches build metadata to /healthz.
func WithHealthBuildInfo(info health.BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthClock overrides the clock, primarily for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.now = clock
		}
	}
}

// Healthz reports process liveness. It never touches dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	payload := map[string]any{
		"status":    health.StatusOK,
		"uptime":    now.Sub(h.build.StartedAt).Truncate(time.Second).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	if h.build.Version != "" {
		payload["version"] = h.build.Version
	}
	if h.build.CommitSHA != "" {
		payload["commit_sha"] = h.build.CommitSHA
	}
	if h.build.Environment != "" {
		payload["environment"] = h.build.Environment
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

// Readyz runs the dependency checks and answers 503 when a critical one fails.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		httpx.WriteJSON(w, http.StatusOK, health.Report{
			Status:      health.StatusOK,
			Checks:      map[string]health.Result{},
			GeneratedAt: h.now().UTC(),
		})
		return
	}
	report := h.checker.Collect(r.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, report)
}
