package logger

import (
	"log/slog"
	"runtime"
	"time"
)

// Helpers return an empty slog.Attr for empty input; slog drops those, so
// the helpers can be passed without nil checks.

// Error returns the "error" attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration returns the "duration" attribute.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// SessionID returns the "session_id" attribute.
func SessionID(id string) slog.Attr {
	return nonEmpty("session_id", id)
}

// Scope returns the "scope" attribute: the guild a step applies to.
func Scope(scope string) slog.Attr {
	return nonEmpty("scope", scope)
}

// UserID returns the "user_id" attribute.
func UserID(id string) slog.Attr {
	return nonEmpty("user_id", id)
}

// Product returns the "product" attribute.
func Product(name string) slog.Attr {
	return nonEmpty("product", name)
}

// State returns the "state" attribute for a flow state.
func State(state string) slog.Attr {
	return slog.String("state", state)
}

// Outcome returns the "outcome" attribute for what a user was shown.
func Outcome(kind string) slog.Attr {
	return slog.String("outcome", kind)
}

// Component names the subsystem that logged.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Action names the operation being performed.
func Action(action string) slog.Attr {
	return slog.String("action", action)
}

// Count returns an integer attribute under key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Stack returns the current goroutine's stack trace.
func Stack() slog.Attr {
	buf := make([]byte, 64<<10)
	buf = buf[:runtime.Stack(buf, false)]
	return slog.String("stack", string(buf))
}

func nonEmpty(key, value string) slog.Attr {
	if value == "" {
		return slog.Attr{}
	}
	return slog.String(key, value)
}
