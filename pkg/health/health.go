// Package health reports whether a service and its backing stores can take
// traffic. Components register a Check; Run executes them in parallel and
// the handlers expose the result as liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Status is the health of one component or of the whole service.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

func (s Status) rank() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check inspects a single component.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth is the outcome of one Check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the readiness answer. Status is the worst component status.
type Report struct {
	Service    string                     `json:"service"`
	Status     Status                     `json:"status"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// Checker holds the registered checks of one service.
type Checker struct {
	service string
	started time.Time
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	checks map[string]Check
}

// NewChecker creates a Checker for the named service. Each check gets at
// most two seconds before it is reported down.
func NewChecker(service string) *Checker {
	return &Checker{
		service: service,
		started: time.Now(),
		timeout: 2 * time.Second,
		logger:  slog.Default().With("component", "health"),
		checks:  make(map[string]Check),
	}
}

// Static returns a check that always reports status with msg, for
// components whose state is fixed at startup.
func Static(status Status, msg string) Check {
	return func(context.Context) ComponentHealth {
		return ComponentHealth{Status: status, Message: msg}
	}
}

// Register adds or replaces the check for name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every check concurrently.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	type result struct {
		name string
		ComponentHealth
	}
	results := make(chan result, len(checks))
	for name, check := range checks {
		go func() { results <- result{name, c.runOne(ctx, check)} }()
	}

	report := Report{
		Service:    c.service,
		Status:     StatusUp,
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for range checks {
		r := <-results
		report.Components[r.name] = r.ComponentHealth
		if r.Status.rank() > report.Status.rank() {
			report.Status = r.Status
		}
		if r.Status == StatusDown {
			c.logger.Warn("component down", "name", r.name, "message", r.Message)
		}
	}
	return report
}

// runOne bounds check by the per-check timeout. A check that overruns is
// reported down and left to finish in the background.
func (c *Checker) runOne(ctx context.Context, check Check) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	done := make(chan ComponentHealth, 1)
	go func() { done <- check(ctx) }()
	var h ComponentHealth
	select {
	case h = <-done:
	case <-ctx.Done():
		h = ComponentHealth{Status: StatusDown, Message: "check timed out"}
	}
	h.Latency = time.Since(start).Round(time.Millisecond).String()
	return h
}

// LiveHandler answers 200 while the process is serving.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": c.service,
			"status":  "alive",
			"uptime":  time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers 503 only when a component is down. A degraded
// service still answers 200 because the result cache falls back to process
// memory and analytics are best effort.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		code := http.StatusOK
		if report.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
