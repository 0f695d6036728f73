package interaction

import (
	"context"
	"time"
)

// Store holds live sessions. Implementations must be safe for concurrent use
// and must make ClaimAndRemove and ClaimExpired linearizable: among
// concurrent claims of one id exactly one returns the session.
type Store interface {
	// Put inserts a new session. Returns ErrDuplicateID if the id exists.
	Put(ctx context.Context, s Session) error

	// Peek returns the session without removing it.
	Peek(ctx context.Context, id string) (Session, error)

	// ClaimAndRemove removes and returns the session in one step.
	ClaimAndRemove(ctx context.Context, id string) (Session, error)

	// ClaimExpired removes and returns the session only if its deadline is
	// at or before now. Returns ErrNotExpired and leaves a live session in place.
	ClaimExpired(ctx context.Context, id string, now time.Time) (Session, error)

	// Expired lists up to limit ids whose deadline is at or before now,
	// earliest deadline first.
	Expired(ctx context.Context, now time.Time, limit int) ([]string, error)
}
