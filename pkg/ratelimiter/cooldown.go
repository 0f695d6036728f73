package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/keyverify/pkg/clock"
)

// Config holds cooldown settings loaded from the environment.
type Config struct {
	Cooldown        time.Duration `env:"RATE_LIMIT_COOLDOWN" envDefault:"10s"`
	CleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"5m"`
	KeyPrefix       string        `env:"RATE_LIMIT_KEY_PREFIX" envDefault:"cooldown:"`
}

// Store persists per-key cooldown windows.
// Implementations must make Arm atomic per key.
type Store interface {
	// Arm opens a window ending at now+window unless an unexpired window
	// already exists. It returns the end of the window in effect and whether
	// this call opened it.
	Arm(ctx context.Context, key string, now time.Time, window time.Duration) (nextAllowedAt time.Time, armed bool, err error)

	// Reset removes the window for key.
	Reset(ctx context.Context, key string) error
}

// Result describes the outcome of a cooldown check.
type Result struct {
	NextAllowedAt time.Time
	RetryAfter    time.Duration
	allowed       bool
}

// Allowed reports whether the attempt may proceed.
func (r Result) Allowed() bool {
	return r.allowed
}

// Err returns ErrRateLimitExceeded for throttled results and nil otherwise.
func (r Result) Err() error {
	if r.allowed {
		return nil
	}
	return ErrRateLimitExceeded
}

// Cooldown is a per-key gate: one attempt per window. The window is consumed
// by the attempt itself, whatever happens to the action afterwards.
type Cooldown struct {
	store  Store
	window time.Duration
	prefix string
	clock  clock.Clock
}

// CooldownOption configures a Cooldown.
type CooldownOption func(*Cooldown)

// WithClock overrides the time source.
func WithClock(c clock.Clock) CooldownOption {
	return func(cd *Cooldown) {
		if c != nil {
			cd.clock = c
		}
	}
}

// WithKeyPrefix namespaces keys in shared stores.
func WithKeyPrefix(prefix string) CooldownOption {
	return func(cd *Cooldown) {
		cd.prefix = prefix
	}
}

// NewCooldown creates a cooldown gate over store.
func NewCooldown(store Store, window time.Duration, opts ...CooldownOption) (*Cooldown, error) {
	if store == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("store is required"))
	}
	if window <= 0 {
		return nil, errors.Join(ErrInvalidConfig, errors.New("cooldown must be positive"))
	}

	cd := &Cooldown{
		store:  store,
		window: window,
		clock:  clock.Real(),
	}
	for _, opt := range opts {
		opt(cd)
	}
	return cd, nil
}

// NewCooldownFromConfig creates a cooldown gate using cfg.
func NewCooldownFromConfig(store Store, cfg Config, opts ...CooldownOption) (*Cooldown, error) {
	return NewCooldown(store, cfg.Cooldown, append([]CooldownOption{WithKeyPrefix(cfg.KeyPrefix)}, opts...)...)
}

// CheckAndArm allows the attempt and arms a new window when no window is
// active; otherwise it reports how long the caller has to wait.
func (c *Cooldown) CheckAndArm(ctx context.Context, key string) (Result, error) {
	now := c.clock.Now()

	next, armed, err := c.store.Arm(ctx, c.prefix+key, now, c.window)
	if err != nil {
		return Result{}, errors.Join(ErrStoreUnavailable, err)
	}

	if armed {
		return Result{NextAllowedAt: next, allowed: true}, nil
	}

	retry := next.Sub(now)
	if retry < 0 {
		retry = 0
	}
	return Result{NextAllowedAt: next, RetryAfter: retry}, nil
}

// Reset clears the window for key (administrative override).
func (c *Cooldown) Reset(ctx context.Context, key string) error {
	return c.store.Reset(ctx, c.prefix+key)
}

// Window returns the configured cooldown duration.
func (c *Cooldown) Window() time.Duration {
	return c.window
}
