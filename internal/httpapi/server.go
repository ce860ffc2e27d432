// Package httpapi serves the ranking engine over HTTP with gin. Analysis
// progress can be streamed over a websocket and Prometheus metrics are
// exposed at /metrics.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dshills/contextrank/internal/cache"
	"github.com/dshills/contextrank/internal/engine"
	"github.com/dshills/contextrank/internal/metrics"
	"github.com/dshills/contextrank/internal/source"
)

// Config configures the HTTP listener
type Config struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server is the HTTP API
type Server struct {
	cfg      Config
	router   *gin.Engine
	sessions *engine.Sessions
	cache    *cache.Cache
	metrics  *metrics.Collector
	source   source.Options
	logger   logrus.FieldLogger
}

// Option configures a Server
type Option func(*Server)

// WithMetrics exposes the collector at /metrics
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSourceOptions sets how project files are loaded from disk
func WithSourceOptions(opts source.Options) Option {
	return func(s *Server) { s.source = opts }
}

// WithLogger sets the request and server logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the router. c is the cache shared by every session.
func New(cfg Config, sessions *engine.Sessions, c *cache.Cache, opts ...Option) *Server {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		cache:    c,
		source:   source.DefaultOptions(),
		logger:   discard,
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(traceID())
	router.Use(requestLogger(s.logger))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	s.router = router
	s.routes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", TraceIDHeader}
	cfg.ExposeHeaders = []string{"Content-Length", TraceIDHeader}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

func (s *Server) routes() {
	s.router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	s.router.GET("/ws/analyze", s.handleAnalyzeStream)

	api := s.router.Group("/api")
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/embeddings", s.handleEmbeddings)
	api.POST("/search", s.handleSearch)
	api.POST("/trimodel", s.handleTriModel)
	api.GET("/keywords", s.handleKeywords)
	api.GET("/dependencies", s.handleDependencies)
	api.GET("/status", s.handleStatus)
	api.DELETE("/cache", s.handleClearCache)
	api.POST("/cache/evict", s.handleEvictCache)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.cfg.Addr).Info("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("HTTP API stopped")
	return nil
}
