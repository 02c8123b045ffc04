// Package server exposes an ontology over an HTTP JSON API.
//
// Endpoints:
//
//	GET  /health           liveness and ontology version
//	GET  /terms/{id}       one term (id, HP: id or exact name)
//	GET  /search?q=&limit= case-insensitive name search
//	GET  /path?a=&b=       path between two terms via their nearest common ancestor
//	POST /similarity       set similarity for a batch of pairs
//	POST /enrichment       hypergeometric enrichment for a batch of sets
//	POST /linkage          hierarchical clustering of sets
//	GET  /metrics          Prometheus metrics
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orneryd/phenograph/pkg/cache"
	"github.com/orneryd/phenograph/pkg/ontology"
)

// Errors for HTTP operations.
var (
	ErrServerClosed = fmt.Errorf("server closed")
	ErrBadRequest   = fmt.Errorf("bad request")
)

// Config holds HTTP server configuration.
type Config struct {
	// Address to bind to (default: "0.0.0.0")
	Address string
	// Port to listen on (default: 8080)
	Port int
	// ReadTimeout for requests
	ReadTimeout time.Duration
	// WriteTimeout for responses
	WriteTimeout time.Duration
	// IdleTimeout for keep-alive connections
	IdleTimeout time.Duration
	// MaxRequestSize in bytes (default: 10MB)
	MaxRequestSize int64

	// CacheSize is the number of POST responses kept, 0 disables caching.
	CacheSize int
	// CacheTTL expires cached responses, 0 keeps them until evicted.
	CacheTTL time.Duration

	// Workers bounds batch parallelism per request, 0 means one per CPU.
	Workers int

	// Defaults for requests that leave the choice open.
	Kind     string
	Method   string
	Combiner string
	Linkage  string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:        "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxRequestSize: 10 * 1024 * 1024, // 10MB
		CacheSize:      1024,
		CacheTTL:       10 * time.Minute,
		Kind:           "omim",
		Method:         "graphic",
		Combiner:       "funSimAvg",
		Linkage:        "single",
	}
}

// Server is the HTTP API server.
type Server struct {
	config *Config
	ont    *ontology.Ontology
	logger *slog.Logger

	httpServer *http.Server
	listener   net.Listener
	handler    http.Handler

	closed  atomic.Bool
	started time.Time

	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
	cacheLookups    *prometheus.CounterVec

	// cache holds encoded responses of the POST endpoints, nil when disabled.
	cache *cache.Cache[[]byte]
}

// New creates a server for ont. A nil config uses DefaultConfig and a nil
// logger uses slog.Default.
func New(ont *ontology.Ontology, config *Config, logger *slog.Logger) (*Server, error) {
	if ont == nil {
		return nil, ontology.ErrNotInitialized
	}
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	s := &Server{
		config:   config,
		ont:      ont,
		logger:   logger.With("component", "http"),
		started:  time.Now(),
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phenograph_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phenograph_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"route"}),
		activeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Name: "phenograph_http_active_requests",
			Help: "Requests currently being served",
		}),
	}
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "phenograph_ontology_terms",
		Help: "Terms in the loaded ontology",
	}, func() float64 { return float64(ont.Len()) })

	if config.CacheSize > 0 {
		s.cache = cache.New[[]byte](config.CacheSize, config.CacheTTL)
		s.cacheLookups = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phenograph_response_cache_lookups_total",
			Help: "Response cache lookups by result",
		}, []string{"result"})
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "phenograph_response_cache_entries",
			Help: "Responses currently cached",
		}, func() float64 { return float64(s.cache.Len()) })
	}

	s.handler = s.buildRouter()
	return s, nil
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler { return s.handler }

// Start begins listening for HTTP connections.
func (s *Server) Start() error {
	if s.closed.Load() {
		return ErrServerClosed
	}

	addr := net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.started = time.Now()

	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", listener.Addr().String())
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// =============================================================================
// Router Setup
// =============================================================================

func (s *Server) buildRouter() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /terms/{id}", s.handleTerm)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /path", s.handlePath)

	mux.HandleFunc("POST /similarity", s.cached(s.handleSimilarity))
	mux.HandleFunc("POST /enrichment", s.cached(s.handleEnrichment))
	mux.HandleFunc("POST /linkage", s.cached(s.handleLinkage))

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = s.loggingMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	handler = s.metricsMiddleware(mux, handler)
	handler = s.requestIDMiddleware(handler)
	return handler
}

// =============================================================================
// Middleware
// =============================================================================

type contextKey string

const contextKeyRequestID = contextKey("request_id")

// RequestID returns the id assigned to the request by the server.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyRequestID, requestID)))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		// Skip health checks for noise reduction
		if r.URL.Path != "/health" {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration", time.Since(start),
				"request_id", RequestID(r.Context()))
		}
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic serving request",
					"panic", err,
					"path", r.URL.Path,
					"request_id", RequestID(r.Context()),
					"stack", string(debug.Stack()))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) metricsMiddleware(mux *http.ServeMux, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.activeRequests.Inc()
		defer s.activeRequests.Dec()

		_, route := mux.Handler(r)
		if route == "" {
			route = "unmatched"
		}
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		s.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.requestsTotal.WithLabelValues(route, strconv.Itoa(wrapped.status)).Inc()
	})
}

// cached serves repeated identical POST bodies from the response cache.
// Only 200 responses are stored.
func (s *Server) cached(next http.HandlerFunc) http.HandlerFunc {
	if s.cache == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxRequestSize))
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		key := cache.Key(r.URL.Path, body)
		if data, ok := s.cache.Get(key); ok {
			s.cacheLookups.WithLabelValues("hit").Inc()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		}
		s.cacheLookups.WithLabelValues("miss").Inc()

		r.Body = io.NopCloser(bytes.NewReader(body))
		rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Cache", "miss")
		next(rec, r)
		if rec.status == http.StatusOK {
			s.cache.Put(key, rec.buf.Bytes())
		}
	}
}

// bodyRecorder copies everything written through it.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *bodyRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *bodyRecorder) Write(p []byte) (int, error) {
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) readJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, s.config.MaxRequestSize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// writeJSON encodes v before the status is sent, so an unencodable value
// becomes a 500 rather than an empty 200.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encoding response", "error", err)
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]any{
			"error":   true,
			"message": "internal server error",
			"code":    status,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		s.logger.Warn("writing response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

// fail maps err onto a status code by its sentinel.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ontology.ErrNotFound), errors.Is(err, ontology.ErrNoPath):
		status = http.StatusNotFound
	case errors.Is(err, ontology.ErrInvalidInput),
		errors.Is(err, ontology.ErrUnsupported),
		errors.Is(err, ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err, "request_id", RequestID(r.Context()))
	}
	s.writeError(w, status, err.Error())
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || val <= 0 {
		return defaultVal
	}
	return val
}
