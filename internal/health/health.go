// Package health evaluates dependency probes for the readiness endpoint.
package health

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 1500 * time.Millisecond

// Status values reported per check and for the whole report.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// Check describes a dependency probe.
type Check struct {
	Name    string
	Timeout time.Duration
	// Critical failures report StatusError; other failures report StatusDegraded.
	Critical bool
	Check    func(context.Context) error
}

// Result is the outcome of one probe.
type Result struct {
	Status    string        `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	Latency   time.Duration `json:"-"`
	LatencyMS int64         `json:"latency_ms"`
	CheckedAt time.Time     `json:"checked_at"`
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// Report aggregates every probe.
type Report struct {
	Status      string            `json:"status"`
	Checks      map[string]Result `json:"checks"`
	Version     string            `json:"version,omitempty"`
	CommitSHA   string            `json:"commit_sha,omitempty"`
	Environment string            `json:"environment,omitempty"`
	Uptime      string            `json:"uptime,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Healthy reports whether the service can take traffic. Degraded dependencies still count.
func (r Report) Healthy() bool {
	return r.Status != StatusError
}

// Option customises a Checker.
type Option func(*Checker)

// WithDefaultTimeout overrides the timeout applied when a check omits its own.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.defaultTimeout = timeout
		}
	}
}

// WithClock injects a custom clock, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Checker) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithBuildInfo attaches build metadata to reports.
func WithBuildInfo(info BuildInfo) Option {
	return func(c *Checker) {
		c.build = info
	}
}

// Checker runs checks concurrently, each under its own timeout.
type Checker struct {
	checks         []Check
	defaultTimeout time.Duration
	now            func() time.Time
	build          BuildInfo
}

// NewChecker validates checks and builds a Checker.
func NewChecker(checks []Check, opts ...Option) (*Checker, error) {
	seen := make(map[string]struct{}, len(checks))
	for _, check := range checks {
		name := strings.TrimSpace(check.Name)
		if name == "" {
			return nil, errors.New("health: check missing name")
		}
		if check.Check == nil {
			return nil, fmt.Errorf("health: check %s missing function", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("health: duplicate check %s", name)
		}
		seen[name] = struct{}{}
	}

	c := &Checker{
		checks:         append([]Check(nil), checks...),
		defaultTimeout: defaultTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.build.StartedAt.IsZero() {
		c.build.StartedAt = c.now()
	}
	return c, nil
}

// Collect evaluates every check and aggregates the results.
func (c *Checker) Collect(ctx context.Context) Report {
	results := make(map[string]Result, len(c.checks))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	wg.Add(len(c.checks))
	for _, check := range c.checks {
		check := check
		go func() {
			defer wg.Done()
			res := c.run(ctx, check)
			mu.Lock()
			results[strings.TrimSpace(check.Name)] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	now := c.now()
	report := Report{
		Status:      deriveStatus(results),
		Checks:      results,
		Version:     c.build.Version,
		CommitSHA:   c.build.CommitSHA,
		Environment: c.build.Environment,
		GeneratedAt: now.UTC(),
	}
	if !c.build.StartedAt.IsZero() {
		report.Uptime = now.Sub(c.build.StartedAt).Truncate(time.Second).String()
	}
	return report
}

func (c *Checker) run(ctx context.Context, check Check) Result {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := c.now()
	err := check.Check(checkCtx)
	end := c.now()

	res := Result{
		Status:    StatusOK,
		Latency:   end.Sub(start),
		LatencyMS: end.Sub(start).Milliseconds(),
		CheckedAt: end.UTC(),
	}
	if err == nil && checkCtx.Err() != nil {
		err = checkCtx.Err()
	}

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		res.Status = StatusError
		res.Detail = "timeout"
	case errors.Is(err, context.Canceled):
		res.Status = StatusError
		res.Detail = "cancelled"
	case check.Critical:
		res.Status = StatusError
		res.Detail = err.Error()
	default:
		res.Status = StatusDegraded
		res.Detail = err.Error()
	}
	return res
}

func deriveStatus(results map[string]Result) string {
	status := StatusOK
	for _, r := range results {
		switch r.Status {
		case StatusOK:
		case StatusError:
			return StatusError
		default:
			status = StatusDegraded
		}
	}
	return status
}
