package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PratikDhanave/web-analytics-service/internal/analytics"
	"github.com/PratikDhanave/web-analytics-service/internal/auth"
	"github.com/PratikDhanave/web-analytics-service/internal/config"
	"github.com/PratikDhanave/web-analytics-service/internal/handlers"
	"github.com/PratikDhanave/web-analytics-service/internal/logging"
	"github.com/PratikDhanave/web-analytics-service/internal/store"
)

const (
	readyTimeout    = time.Second
	shutdownTimeout = 10 * time.Second
)

// NewRouter wires public endpoints and the analytics API.
// Public: /health, /ready, POST /api/events
// Key-protected when API keys are configured: GET /api/events/...
func NewRouter(cfg config.Config, st store.Store, engine *analytics.Engine, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.Middleware(logger))
	r.Use(cors.New(corsConfig(cfg)))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the store is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			logging.FromContext(c).WithError(err).Warn("readiness check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	ingest := r.Group("/api/events")
	handlers.RegisterEventRoutes(ingest, st)

	reports := r.Group("/api/events")
	reports.Use(auth.APIKeyMiddleware(cfg.APIKeys))
	handlers.RegisterReportRoutes(reports, engine)

	return r
}

func corsConfig(cfg config.Config) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowHeaders = append(cc.AllowHeaders, auth.HeaderName, logging.RequestIDHeader)
	cc.ExposeHeaders = []string{logging.RequestIDHeader}
	if cfg.AllowAllOrigins() {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.CORSOrigins
	}
	return cc
}

// Server runs the router until its context is cancelled.
type Server struct {
	addr    string
	handler http.Handler
	logger  *logrus.Logger
}

func NewServer(addr string, handler http.Handler, logger *logrus.Logger) *Server {
	return &Server{addr: addr, handler: handler, logger: logger}
}

// Run listens on the configured address and blocks until ctx is done or the
// server fails. In-flight requests get shutdownTimeout to complete.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener, which it takes ownership of.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.WithField("addr", listener.Addr().String()).Info("server started")

	errCh := make(chan error, 1)
	go func() {
		err := srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		<-errCh
		s.logger.Info("server stopped")
		return nil
	}
}
