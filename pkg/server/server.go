// Package server wires the HTTP surface: policy ingestion, compliance
// checks, rule inspection, and the operational endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"clearpath-hq/sentinel/pkg/audit/recorder"
	"clearpath-hq/sentinel/pkg/config"
	"clearpath-hq/sentinel/pkg/directory"
	"clearpath-hq/sentinel/pkg/evaluate"
	"clearpath-hq/sentinel/pkg/nlquery"
	"clearpath-hq/sentinel/pkg/rules"
	"clearpath-hq/sentinel/pkg/server/middleware"
	"clearpath-hq/sentinel/pkg/telemetry/health"
)

// IngestPipeline runs one policy ingestion.
type IngestPipeline interface {
	Ingest(ctx context.Context, firmName, policyText string) (*rules.RulesBundle, error)
}

// Evaluator answers one trade question.
type Evaluator interface {
	Evaluate(ctx context.Context, firmName string, input evaluate.RunInput) (*rules.ComplianceVerdict, error)
}

// BundleStore reads stored bundles.
type BundleStore interface {
	Load(ctx context.Context, firmName string) (*rules.RulesBundle, error)
}

// Metrics is the collector surface the server needs.
type Metrics interface {
	middleware.MetricsSink
	Handler() http.Handler
}

// Deps carries everything the server serves with.
type Deps struct {
	Pipeline  IngestPipeline
	Evaluator Evaluator
	Store     BundleStore
	Directory directory.Directory
	Parser    *nlquery.Parser
	Recorder  *recorder.Recorder
	Checker   *health.Checker
	Metrics   Metrics
	Logger    *slog.Logger
}

// Server is the HTTP front of the service.
type Server struct {
	cfg       config.ServerConfig
	pipeline  IngestPipeline
	evaluator Evaluator
	store     BundleStore
	directory directory.Directory
	parser    *nlquery.Parser
	recorder  *recorder.Recorder
	checker   *health.Checker
	metrics   Metrics
	logger    *slog.Logger
	httpSrv   *http.Server
}

// New creates a server from its dependencies.
func New(cfg config.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		pipeline:  deps.Pipeline,
		evaluator: deps.Evaluator,
		store:     deps.Store,
		directory: deps.Directory,
		parser:    deps.Parser,
		recorder:  deps.Recorder,
		checker:   deps.Checker,
		metrics:   deps.Metrics,
		logger:    logger.With("component", "server"),
	}
	s.httpSrv = &http.Server{
		Addr:           cfg.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}
	return s
}

// Handler builds the routed handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/policies/ingest", s.handleIngest)
	mux.HandleFunc("POST /api/compliance/check", s.handleCheck)
	mux.HandleFunc("GET /api/firms/{firm}/rules", s.handleFirmRules)

	if s.checker != nil {
		mux.Handle("GET /health", s.checker.LiveHandler())
		mux.Handle("GET /ready", s.checker.ReadyHandler())
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var sink middleware.MetricsSink
	if s.metrics != nil {
		sink = s.metrics
	}
	var handler http.Handler = mux
	handler = middleware.Logging(s.logger, sink)(handler)
	handler = middleware.CORS(s.cfg.CORS)(handler)
	handler = middleware.Recovery(handler)
	handler = middleware.RequestID(handler)
	return handler
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "address", s.cfg.ListenAddress)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down http server")
	return s.httpSrv.Shutdown(shutdownCtx)
}
