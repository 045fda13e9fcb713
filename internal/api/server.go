// Package api exposes searches and stored records over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FranksOps/newsprobe/internal/metrics"
	"github.com/FranksOps/newsprobe/internal/serp"
	"github.com/FranksOps/newsprobe/internal/storage"
)

// maxLimit caps the limit query parameter of both endpoints.
const maxLimit = 100

type Config struct {
	Provider serp.Provider
	// Backend, when set, persists every search and serves /records.
	Backend storage.Backend
	Logger  *slog.Logger
}

// Server routes HTTP requests to the provider.
type Server struct {
	router   *gin.Engine
	provider serp.Provider
	backend  storage.Backend
	logger   *slog.Logger
}

// New builds the router. gin's mode is left to the caller (gin.SetMode).
func New(cfg Config) (*Server, error) {
	if cfg.Provider == nil {
		return nil, errors.New("api: provider is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		router:   gin.New(),
		provider: cfg.Provider,
		backend:  cfg.Backend,
		logger:   cfg.Logger,
	}
	s.router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": s.provider.Name()})
	})
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.router.GET("/search", s.handleSearch)
	if s.backend != nil {
		s.router.GET("/records", s.handleRecords)
	}
	return s, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		for _, e := range c.Errors {
			attrs = append(attrs, "err", e.Err)
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("request completed", attrs...)
			return
		}
		logger.Info("request completed", attrs...)
	}
}
