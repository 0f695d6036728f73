package redis

import "errors"

// Connection errors returned by Connect and Healthcheck.
var (
	ErrEmptyConnectionURL = errors.New("redis: connection URL is empty")
	ErrParseURL           = errors.New("redis: cannot parse connection URL")
	ErrNotReady           = errors.New("redis: not ready after retries")
	ErrHealthcheckFailed  = errors.New("redis: healthcheck failed")
)
