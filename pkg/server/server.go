// Package server exposes token analyses over HTTP: a JSON API, a websocket
// stream of dashboard views, health probes, Prometheus metrics and an
// embedded browser dashboard.
package server

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/metrics"
)

//go:embed static
var staticFiles embed.FS

// RequestIDHeader carries the per-request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// Analyzer produces token reports.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string, opts analyzer.Options) (*analyzer.Report, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server settings.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// DefaultDays is used when the request has no days parameter.
	DefaultDays int

	// StreamInterval is the refresh period of /api/stream.
	StreamInterval time.Duration

	// RequestTimeout bounds one analysis.
	RequestTimeout time.Duration
}

// DefaultConfig returns the default server settings.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		DefaultDays:    30,
		StreamInterval: 30 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// Server serves the HTTP API.
type Server struct {
	analyzer Analyzer
	ready    Pinger
	config   Config
	logger   zerolog.Logger
	mux      *http.ServeMux
}

// New creates a server. ready may be nil, in which case /ready always
// succeeds.
func New(a Analyzer, ready Pinger, cfg Config) *Server {
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = DefaultConfig().DefaultDays
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = DefaultConfig().StreamInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}

	s := &Server{
		analyzer: a,
		ready:    ready,
		config:   cfg,
		logger:   log.With().Str("component", "server").Logger(),
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	s.mux.HandleFunc("GET /health", healthHandler)
	s.mux.HandleFunc("GET /ready", s.readyHandler)
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /api/analyze/{token}", s.analyzeHandler)
	s.mux.HandleFunc("GET /api/stream/{token}", s.streamHandler)
	s.mux.Handle("GET /", http.FileServerFS(static))
}

// Handler returns the root handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.Addr).Msg("Starting microanalyst server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info().Msg("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// withRequestID tags every request with an ID and a request-scoped logger.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)

		logger := s.logger.With().Str("request_id", id).Logger()
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}
