// Package metrics exposes Prometheus metrics for rule synthesis,
// compliance evaluation, and the HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls metric registration.
type Config struct {
	// Enabled gates all recording. Default true via DefaultConfig.
	Enabled bool

	// Namespace prefixes every metric name. Default "sentinel".
	Namespace string
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{Enabled: true, Namespace: "sentinel"}
}

// Collector owns the registry and every metric the service records.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	// Synthesis
	rulesValidated  *prometheus.CounterVec
	ruleIterations  prometheus.Histogram
	ingestDuration  prometheus.Histogram
	ingestRuleCount prometheus.Histogram

	// Evaluation
	checksTotal   *prometheus.CounterVec
	rulesPerCheck prometheus.Histogram
	checkDuration prometheus.Histogram

	// HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry, including the Go
// runtime and process collectors.
func NewCollector(cfg *Config) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "sentinel"
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ns := cfg.Namespace
	c := &Collector{
		config:   cfg,
		registry: registry,

		rulesValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "synthesis", Name: "rules_total",
			Help: "Rules that finished refinement, by outcome.",
		}, []string{"outcome"}),
		ruleIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "synthesis", Name: "rule_iterations",
			Help:    "Validation attempts consumed per rule.",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 10},
		}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "synthesis", Name: "ingest_duration_seconds",
			Help:    "Wall time of one policy ingestion.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 900},
		}),
		ingestRuleCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "synthesis", Name: "ingest_rules",
			Help:    "Validated rules produced per ingestion.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 12, 20},
		}),

		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "evaluation", Name: "checks_total",
			Help: "Compliance checks, by verdict.",
		}, []string{"verdict"}),
		rulesPerCheck: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "evaluation", Name: "rules_per_check",
			Help:    "Applicable rules executed per check.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 12, 20},
		}),
		checkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "evaluation", Name: "check_duration_seconds",
			Help:    "Wall time of one compliance check.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests, by route and status class.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		}, []string{"route"}),
	}

	registry.MustRegister(
		c.rulesValidated, c.ruleIterations, c.ingestDuration, c.ingestRuleCount,
		c.checksTotal, c.rulesPerCheck, c.checkDuration,
		c.httpRequests, c.httpDuration,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler returns the /metrics HTTP handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RuleOutcome records one finished refinement.
func (c *Collector) RuleOutcome(firm string, validated bool, iterations int) {
	if !c.config.Enabled {
		return
	}
	outcome := "validated"
	if !validated {
		outcome = "dropped"
	}
	c.rulesValidated.WithLabelValues(outcome).Inc()
	c.ruleIterations.Observe(float64(iterations))
}

// IngestCompleted records one finished ingestion.
func (c *Collector) IngestCompleted(firm string, ruleCount int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.ingestDuration.Observe(duration.Seconds())
	c.ingestRuleCount.Observe(float64(ruleCount))
}

// CheckCompleted records one finished compliance check.
func (c *Collector) CheckCompleted(firm string, allowed bool, rulesChecked int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	verdict := "allowed"
	if !allowed {
		verdict = "denied"
	}
	c.checksTotal.WithLabelValues(verdict).Inc()
	c.rulesPerCheck.Observe(float64(rulesChecked))
	c.checkDuration.Observe(duration.Seconds())
}

// HTTPRequest records one served request. Routes are static patterns, not
// raw paths, to keep cardinality bounded.
func (c *Collector) HTTPRequest(route string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.httpRequests.WithLabelValues(route, statusClass(status)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
