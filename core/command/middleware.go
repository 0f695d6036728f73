package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/keyverify/core/logger"
)

// Middleware wraps a Handler.
type Middleware func(next Handler) Handler

// chain applies middleware so that the first one runs outermost.
func chain(handler Handler, middleware []Middleware) Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}

type middlewareHandler struct {
	name string
	fn   func(ctx context.Context, payload any) error
}

func (h *middlewareHandler) Name() string {
	return h.name
}

func (h *middlewareHandler) Handle(ctx context.Context, payload any) error {
	return h.fn(ctx, payload)
}

// LoggingMiddleware logs each command's name, duration and error at debug
// level, and failures at error level.
func LoggingMiddleware(log *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return &middlewareHandler{
			name: next.Name(),
			fn: func(ctx context.Context, payload any) error {
				start := time.Now()
				err := next.Handle(ctx, payload)

				if err != nil {
					log.ErrorContext(ctx, "command failed",
						slog.String("command", next.Name()),
						logger.Duration(time.Since(start)),
						logger.Error(err))
					return err
				}

				log.DebugContext(ctx, "command completed",
					slog.String("command", next.Name()),
					logger.Duration(time.Since(start)))
				return nil
			},
		}
	}
}

// RecoverMiddleware converts handler panics into errors. Transports already
// recover; this keeps panics from unwinding through outer middleware.
func RecoverMiddleware() Middleware {
	return func(next Handler) Handler {
		return &middlewareHandler{
			name: next.Name(),
			fn: func(ctx context.Context, payload any) error {
				return safeHandle(ctx, next, payload)
			},
		}
	}
}
