package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cyphera/eip7702-demo/internal/logger"
)

const (
	readHeaderTimeout = 20 * time.Second
	shutdownTimeout   = 5 * time.Second
	limiterSweep      = 5 * time.Minute
)

// Options configures the HTTP API.
type Options struct {
	Port           string
	AllowedOrigins []string
	RateLimitRPS   int
	RateLimitBurst int
}

// Server exposes read-only delegation and Counter state over HTTP.
type Server struct {
	router  *gin.Engine
	limiter *RateLimiter
	port    string
}

// New builds the router and registers all routes.
func New(chain ChainReader, opts Options) (*Server, error) {
	corsHandler, err := configureCORS(opts.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:  gin.New(),
		limiter: NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		port:    opts.Port,
	}

	s.router.Use(gin.Recovery())
	s.router.Use(corsHandler)
	s.router.Use(CorrelationIDMiddleware())
	s.router.Use(s.limiter.Middleware())
	s.router.Use(RequestLoggingMiddleware())

	InitializeRoutes(s.router, chain)
	return s, nil
}

// InitializeRoutes registers the API routes on router.
func InitializeRoutes(router *gin.Engine, chain ChainReader) {
	healthHandler := NewHealthHandler()
	delegationHandler := NewDelegationHandler(chain)
	counterHandler := NewCounterHandler(chain)

	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/accounts/:address/delegation", delegationHandler.GetDelegation)
		v1.GET("/counter/:address/number", counterHandler.GetNumber)
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on the configured port until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%s", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.limiter.RunCleanup(sweepCtx, limiterSweep)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exiting")
	return nil
}
