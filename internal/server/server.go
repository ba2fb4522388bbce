// Package server assembles the HTTP server for the stock API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/beerstock/internal/auth"
	"github.com/vyrodovalexey/beerstock/internal/config"
	"github.com/vyrodovalexey/beerstock/internal/handler"
	"github.com/vyrodovalexey/beerstock/internal/middleware"
)

// Dependencies are the collaborators the server routes requests to.
type Dependencies struct {
	Service handler.BeerService
	Pinger  handler.Pinger
	Feed    *handler.StockFeed
	// Authenticator may be nil when auth mode is none.
	Authenticator auth.Authenticator
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
	config     *config.Config
	logger     *zap.Logger
	feed       *handler.StockFeed
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	s := &Server{
		router: mux.NewRouter(),
		config: cfg,
		logger: logger,
		feed:   deps.Feed,
	}

	s.setupRoutes(deps)
	s.setupMiddleware(deps.Authenticator)
	s.setupHTTPServer()

	return s
}

// setupMiddleware wraps the router. The outer chain runs for every request,
// including CORS preflights that match no route; tracing and metrics run
// inside the router so the matched route template is known.
func (s *Server) setupMiddleware(authenticator auth.Authenticator) {
	s.router.Use(mux.MiddlewareFunc(middleware.Tracing(otel.GetTracerProvider(), otel.GetTextMapPropagator())))
	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	chain := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.CORS(middleware.DefaultCORSConfig(s.config.CORSOrigins)),
		middleware.RateLimit(s.config.RateLimit, s.config.RateBurst, s.logger),
	}
	if authenticator != nil {
		chain = append(chain, middleware.Auth(authenticator, s.logger))
	}

	s.handler = middleware.Chain(chain...)(s.router)
}

func (s *Server) setupRoutes(deps Dependencies) {
	handler.NewRESTHandler(deps.Service, deps.Pinger, s.logger).RegisterRoutes(s.router)

	if deps.Feed != nil {
		deps.Feed.RegisterRoutes(s.router)
	}

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// Start listens and serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.String("store_driver", s.config.StoreDriver),
		zap.String("auth_mode", s.config.AuthMode),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown closes stock feed clients, then drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.feed != nil {
		s.feed.CloseAllConnections()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}
