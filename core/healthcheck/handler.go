package healthcheck

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrymomot/keyverify/core/logger"
)

// Check reports whether one dependency is usable.
type Check func(context.Context) error

// Liveness answers "ALIVE" while the process serves requests.
func Liveness(c echo.Context) error {
	return c.String(http.StatusOK, "ALIVE")
}

// Readiness runs every check in order and answers "READY", or 503 on the
// first failure.
//
//	e.GET("/health/ready", healthcheck.Readiness(log,
//		pg.Healthcheck(pool),
//		redis.Healthcheck(client),
//		sweeper.Healthcheck,
//	))
func Readiness(log *slog.Logger, checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				log.ErrorContext(ctx, "Readiness check failed", logger.Error(err))
				return c.String(http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
			}
		}
		return c.String(http.StatusOK, "READY")
	}
}
