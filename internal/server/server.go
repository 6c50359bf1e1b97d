// Package server exposes the prediction API consumed by display surfaces:
// model info, single-record prediction and catalog browsing.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hype-classifier/internal/catalog"
	"hype-classifier/internal/dataset"
	"hype-classifier/internal/metrics"
	"hype-classifier/internal/ml"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Predictor is the inference contract the server depends on.
type Predictor interface {
	PredictOne(r dataset.Record) (ml.Prediction, error)
	Info() ml.ModelInfo
}

// Metrics counts HTTP traffic.
type Metrics interface {
	Requests(route, code string) metrics.MetricsCounter
	RateLimited() metrics.MetricsCounter
	Errors() metrics.MetricsCounter
}

// Config controls the HTTP listener and middleware.
type Config struct {
	Port           int
	RateLimit      float64 // requests per second per client
	RateBurst      int
	RequestTimeout time.Duration
	CORSOrigins    []string
}

// Server serves one predictor over HTTP.
type Server struct {
	cfg       Config
	predictor Predictor
	catalog   *catalog.Catalog
	metrics   Metrics
	extra     map[string]http.Handler
	router    *gin.Engine
}

// Option customizes a Server.
type Option func(*Server)

// WithCatalog enables the product browsing routes.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithMetrics counts requests and throttled calls.
func WithMetrics(m Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHandler mounts a plain http.Handler at path, e.g. the Prometheus
// exporter at /metrics.
func WithHandler(path string, h http.Handler) Option {
	return func(s *Server) { s.extra[path] = h }
}

// New builds the router. predictor must not be nil.
func New(cfg Config, predictor Predictor, opts ...Option) (*Server, error) {
	if predictor == nil {
		return nil, errors.New("server needs a predictor")
	}
	if cfg.RateLimit <= 0 || cfg.RateBurst <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %v/%d", cfg.RateLimit, cfg.RateBurst)
	}
	s := &Server{
		cfg:       cfg,
		predictor: predictor,
		extra:     make(map[string]http.Handler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger(s.metrics))
	router.Use(CORSMiddleware(s.cfg.CORSOrigins))

	router.GET("/health", s.handleHealth)
	for path, h := range s.extra {
		router.GET(path, gin.WrapH(h))
	}

	limiter := NewRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst)
	v1 := router.Group("/api/v1")
	v1.Use(limiter.Middleware(s.metrics))
	{
		v1.GET("/model", s.handleModel)
		v1.POST("/predict", s.handlePredict)

		products := v1.Group("/products")
		{
			products.GET("", s.handleProducts)
			products.GET("/prediction", s.handleProductPrediction)
		}
	}

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.RequestTimeout,
		ReadTimeout:       s.cfg.RequestTimeout,
		WriteTimeout:      s.cfg.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("prediction server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("prediction server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down prediction server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown prediction server: %w", err)
	}
	return nil
}
