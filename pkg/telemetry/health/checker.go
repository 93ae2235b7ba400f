// Package health tracks component health and serves the liveness and
// readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status of one component or the whole service.
type Status string

const (
	StatusHealthy   Status = "ok"
	StatusUnhealthy Status = "unhealthy"
)

// Check probes one dependency. Return nil for healthy.
type Check func(ctx context.Context) error

// ComponentStatus is one component's last probe result.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Report is the aggregate health document.
type Report struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

// Checker runs registered checks on demand.
type Checker struct {
	version string
	started time.Time

	mu     sync.RWMutex
	checks map[string]Check
}

// NewChecker creates a checker.
func NewChecker(version string) *Checker {
	return &Checker{
		version: version,
		started: time.Now(),
		checks:  make(map[string]Check),
	}
}

// Register adds a named readiness check.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// Live reports process liveness. It never runs dependency checks; a
// wedged dependency must not get the process restarted.
func (c *Checker) Live() Report {
	return Report{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   c.version,
		Uptime:    time.Since(c.started).Round(time.Second).String(),
	}
}

// Ready runs every registered check and aggregates the results.
func (c *Checker) Ready(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	report := Report{
		Status:     StatusHealthy,
		Timestamp:  time.Now().UTC(),
		Version:    c.version,
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		Components: make(map[string]ComponentStatus, len(checks)),
	}
	for name, check := range checks {
		if err := check(ctx); err != nil {
			report.Status = StatusUnhealthy
			report.Components[name] = ComponentStatus{Status: StatusUnhealthy, Message: err.Error()}
			continue
		}
		report.Components[name] = ComponentStatus{Status: StatusHealthy}
	}
	return report
}

// LiveHandler serves GET /health.
func (c *Checker) LiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeReport(w, c.Live(), http.StatusOK)
	})
}

// ReadyHandler serves GET /ready, returning 503 when any check fails.
func (c *Checker) ReadyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := c.Ready(r.Context())
		status := http.StatusOK
		if report.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		writeReport(w, report, status)
	})
}

func writeReport(w http.ResponseWriter, report Report, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}
