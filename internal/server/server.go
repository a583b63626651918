// Package server exposes the voice generator over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hollyai/holly-voice/internal/cache"
	"github.com/hollyai/holly-voice/internal/tts"
	"github.com/hollyai/holly-voice/internal/voice"
)

// Generator is the part of voice.Generator the server needs.
type Generator interface {
	Generate(ctx context.Context, text, voice string, useCache bool) (*voice.Result, error)
	CacheStats() cache.Stats
	ClearCache() error
	Health(ctx context.Context) (tts.EngineInfo, error)
	Loaded() bool
	Engine() string
}

// Options configures a Server.
type Options struct {
	Addr    string
	Version string

	// WriteTimeout bounds a whole response, synthesis included.
	WriteTimeout time.Duration
}

// Server handles HTTP API requests.
type Server struct {
	gen     Generator
	opts    Options
	logger  *log.Logger
	handler http.Handler
	server  *http.Server
}

// New creates a new API server.
func New(gen Generator, opts Options, logger *log.Logger) (*Server, error) {
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		gen:    gen,
		opts:   opts,
		logger: logger.WithPrefix("http"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/cache/stats", s.handleCacheStats).Methods(http.MethodGet)
	r.HandleFunc("/cache/clear", s.handleCacheClear).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	r.Use(withRequestID, s.withLogging, withMetrics)

	gzip, err := gzhttp.NewWrapper(gzhttp.ContentTypes([]string{"application/json", "text/plain"}))
	if err != nil {
		return nil, fmt.Errorf("gzip handler: %w", err)
	}
	s.handler = withCORS(gzip(r))

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.server.Addr, "engine", s.gen.Engine())
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
