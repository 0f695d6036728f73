package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dmitrymomot/keyverify/core/logger"
)

// Config holds health server settings.
type Config struct {
	Addr            string        `env:"HEALTH_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HEALTH_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Server exposes /health/live and /health/ready.
type Server struct {
	echo   *echo.Echo
	cfg    Config
	logger *slog.Logger
}

// NewServer creates a health server. checks back the readiness probe.
func NewServer(cfg Config, log *slog.Logger, checks ...Check) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/health/live", Liveness)
	e.GET("/health/ready", Readiness(log, checks...))

	return &Server{echo: e, cfg: cfg, logger: log}
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run returns a function that serves until ctx is cancelled and then shuts
// the server down. Suitable for errgroup.
func (s *Server) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			s.logger.InfoContext(ctx, "health server started", slog.String("addr", s.cfg.Addr))
			if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("health server: %w", err)
				return
			}
			errCh <- nil
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("health server shutdown: %w", err)
		}
		s.logger.InfoContext(shutdownCtx, "health server stopped")
		return nil
	}
}
