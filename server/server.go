// Package server exposes a Source over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwantia/mediameta"
	"github.com/mwantia/mediameta/config"
	"github.com/mwantia/mediameta/log"
)

type Server struct {
	log        *log.Logger
	source     *mediameta.Source
	router     *mux.Router
	httpServer *http.Server
	gatherer   prometheus.Gatherer
	cfg        config.ServerConfig
}

type Option func(*Server)

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithGatherer serves the metrics of gatherer instead of the default registry.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		if gatherer != nil {
			s.gatherer = gatherer
		}
	}
}

func New(source *mediameta.Source, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		log:      log.Discard(),
		source:   source,
		router:   mux.NewRouter(),
		gatherer: prometheus.DefaultGatherer,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.recovery, requestID, s.logging)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	metricsPath := s.cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	s.router.Handle(metricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/keys", s.handleKeys).Methods(http.MethodGet)
	v1.HandleFunc("/browse", s.handleBrowse).Methods(http.MethodGet)
	v1.HandleFunc("/metadata", s.handleGetMetadata).Methods(http.MethodGet)
	v1.HandleFunc("/metadata", s.handleSetMetadata).Methods(http.MethodPut)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("endpoint %s not found", r.URL.Path))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	})
}

// Handler returns the routed handler, e.g. for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Listening on %s", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("Shutting down server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
