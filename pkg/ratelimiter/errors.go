package ratelimiter

import "errors"

var (
	// ErrInvalidConfig is returned by constructors given a nil store or a
	// non-positive window.
	ErrInvalidConfig = errors.New("invalid cooldown configuration")
	// ErrStoreUnavailable wraps store failures during CheckAndArm.
	ErrStoreUnavailable = errors.New("cooldown store unavailable")
	// ErrRateLimitExceeded is what Result.Err reports for a throttled attempt.
	ErrRateLimitExceeded = errors.New("cooldown active")
)
