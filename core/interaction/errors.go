package interaction

import "errors"

var (
	// ErrNotFound is returned when a session is not in the store. For a claim
	// this means another caller already resolved it.
	ErrNotFound = errors.New("interaction session not found")
	// ErrDuplicateID is returned by Put when the id is already taken.
	ErrDuplicateID = errors.New("interaction session id already exists")
	// ErrExpired is returned by Manager.Claim when the claimed session was
	// already past its deadline. The session is removed either way.
	ErrExpired = errors.New("interaction session has expired")
	// ErrNotExpired is returned by ClaimExpired for a session that is still live.
	ErrNotExpired = errors.New("interaction session is still live")
	// ErrIDGeneration is returned when no free id could be found.
	ErrIDGeneration = errors.New("failed to generate interaction session id")
	// ErrInvalidSession is returned when a session misses required fields.
	ErrInvalidSession = errors.New("invalid interaction session")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("interaction store unavailable")
)
