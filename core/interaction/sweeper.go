package interaction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/keyverify/core/logger"
	"github.com/dmitrymomot/keyverify/pkg/clock"
	"github.com/dmitrymomot/keyverify/pkg/periodic"
)

// ExpireFunc resolves one expired session. It is expected to claim the
// session through Manager.Evict; a lost claim is not an error.
type ExpireFunc func(ctx context.Context, id string) error

// Sweeper periodically finds sessions past their deadline and hands each id
// to an ExpireFunc. One loop serves every session instead of a timer each.
type Sweeper struct {
	store  Store
	expire ExpireFunc

	interval        time.Duration
	batch           int
	shutdownTimeout time.Duration
	clock           clock.Clock
	logger          *slog.Logger

	loop *periodic.Loop

	sweeps  atomic.Int64
	handled atomic.Int64
	failed  atomic.Int64
}

// SweeperStats provides counters for monitoring.
type SweeperStats struct {
	Sweeps    int64 // Completed sweep passes
	Handled   int64 // Ids passed to the expire function without error
	Failed    int64 // Ids whose expire function returned an error
	IsRunning bool
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepInterval sets how often the store is scanned.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweepBatch caps the number of ids handled per pass.
func WithSweepBatch(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.batch = n
		}
	}
}

// WithSweeperClock sets the time source.
func WithSweeperClock(c clock.Clock) SweeperOption {
	return func(s *Sweeper) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSweeperLogger sets the logger.
func WithSweeperLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSweeperShutdownTimeout bounds how long Stop waits for a running pass.
func WithSweeperShutdownTimeout(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// NewSweeper creates a sweeper over store calling expire for each due id.
func NewSweeper(store Store, expire ExpireFunc, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		store:           store,
		expire:          expire,
		interval:        time.Second,
		batch:           100,
		shutdownTimeout: 30 * time.Second,
		clock:           clock.Real(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loop = periodic.New("session sweeper", s.interval, s.sweep,
		periodic.WithClock(s.clock),
		periodic.WithLogger(s.logger),
		periodic.WithShutdownTimeout(s.shutdownTimeout))
	return s
}

// NewSweeperFromConfig creates a sweeper using cfg.
func NewSweeperFromConfig(store Store, expire ExpireFunc, cfg Config, opts ...SweeperOption) *Sweeper {
	return NewSweeper(store, expire, append([]SweeperOption{
		WithSweepInterval(cfg.SweepInterval),
		WithSweepBatch(cfg.SweepBatch),
	}, opts...)...)
}

// SweepOnce runs a single pass and returns how many ids were handled.
// Errors from the expire function are logged and counted, not returned.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := s.store.Expired(ctx, s.clock.Now(), s.batch)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	handled := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if err := s.expire(ctx, id); err != nil {
			s.failed.Add(1)
			s.logger.ErrorContext(ctx, "failed to expire interaction session",
				logger.SessionID(id),
				logger.Error(err))
			continue
		}
		s.handled.Add(1)
		handled++
	}
	s.sweeps.Add(1)
	return handled, nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.SweepOnce(ctx); err != nil {
		s.logger.ErrorContext(ctx, "session sweep failed", logger.Error(err))
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	return s.loop.Start(ctx)
}

// Stop cancels the loop and waits for an in-flight pass.
func (s *Sweeper) Stop() error {
	return s.loop.Stop()
}

// Run provides errgroup compatibility.
func (s *Sweeper) Run(ctx context.Context) func() error {
	return s.loop.Run(ctx)
}

// Stats returns sweeper counters.
func (s *Sweeper) Stats() SweeperStats {
	return SweeperStats{
		Sweeps:    s.sweeps.Load(),
		Handled:   s.handled.Load(),
		Failed:    s.failed.Load(),
		IsRunning: s.loop.Running(),
	}
}

// Healthcheck reports an error when the loop is not running.
func (s *Sweeper) Healthcheck(ctx context.Context) error {
	if !s.Stats().IsRunning {
		return fmt.Errorf("session sweeper is not running")
	}
	return nil
}
