// Package logger builds slog loggers and provides attribute helpers.
//
// Loggers are configured with options:
//
//	log := logger.New(
//		logger.WithProduction("keyverify"),
//		logger.WithLevelString(cfg.LogLevel),
//	)
//
//	log.Info("session sweeper started",
//		logger.Component("sweeper"),
//		logger.Duration(interval),
//	)
//
// WithDevelopment selects text output at debug level; WithProduction and
// WithStaging select JSON at info level. WithContextValue and
// WithContextExtractors copy request-scoped values from the context into
// every record logged with a *Context method.
//
// # Attribute Helpers
//
// Helpers return an empty slog.Attr for nil or empty input, so they can be
// passed unconditionally:
//
//	log.ErrorContext(ctx, "role provisioning failed",
//		logger.Error(err),
//		logger.SessionID(s.ID),
//		logger.Scope(s.Scope),
//		logger.Product(name),
//	)
//
// Domain helpers (SessionID, Scope, UserID, Product, State, Outcome) keep
// key names consistent across the session engine.
package logger
