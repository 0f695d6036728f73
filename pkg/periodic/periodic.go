package periodic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/keyverify/pkg/clock"
)

var (
	ErrInvalidInterval = errors.New("periodic: interval must be positive")
	ErrAlreadyRunning  = errors.New("periodic: loop already running")
	ErrNotRunning      = errors.New("periodic: loop not running")
	ErrShutdownTimeout = errors.New("periodic: shutdown timeout exceeded")
)

// Loop calls a function on every tick of an interval until stopped. Ticks
// never overlap; Stop waits for the tick in progress.
type Loop struct {
	name            string
	interval        time.Duration
	tick            func(ctx context.Context)
	clock           clock.Clock
	logger          *slog.Logger
	shutdownTimeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the time source for the ticker.
func WithClock(c clock.Clock) Option {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithLogger sets the logger for start and stop events.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.logger = log
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for a running tick.
func WithShutdownTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.shutdownTimeout = d
		}
	}
}

// New creates a loop named name calling tick every interval.
func New(name string, interval time.Duration, tick func(ctx context.Context), opts ...Option) *Loop {
	l := &Loop{
		name:            name,
		interval:        interval,
		tick:            tick,
		clock:           clock.Real(),
		logger:          slog.New(slog.DiscardHandler),
		shutdownTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start blocks running the loop until ctx is cancelled or Stop is called,
// and returns the context error.
func (l *Loop) Start(ctx context.Context) error {
	if l.interval <= 0 {
		return fmt.Errorf("%w: %s got %v", ErrInvalidInterval, l.name, l.interval)
	}

	l.mu.Lock()
	if l.cancel != nil {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, l.name)
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.cancel = nil
		l.mu.Unlock()
		cancel()
	}()

	l.logger.InfoContext(runCtx, l.name+" started", slog.Duration("interval", l.interval))

	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			l.logger.InfoContext(context.WithoutCancel(runCtx), l.name+" stopping")
			return runCtx.Err()
		case <-ticker.C:
			l.runTick(runCtx)
		}
	}
}

func (l *Loop) runTick(ctx context.Context) {
	l.mu.Lock()
	if l.cancel == nil {
		l.mu.Unlock()
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()
	defer l.wg.Done()

	l.tick(ctx)
}

// Stop cancels the loop and waits for the current tick to finish.
func (l *Loop) Stop() error {
	l.mu.Lock()
	if l.cancel == nil {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRunning, l.name)
	}
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(l.shutdownTimeout):
		l.logger.Warn(l.name+" shutdown timeout exceeded", slog.Duration("timeout", l.shutdownTimeout))
		return fmt.Errorf("%w: %s after %s", ErrShutdownTimeout, l.name, l.shutdownTimeout)
	}
}

// Run adapts the loop to errgroup: it returns nil when ctx is cancelled.
func (l *Loop) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- l.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = l.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// Running reports whether Start is in progress.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}
