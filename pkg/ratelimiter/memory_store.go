package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/keyverify/pkg/clock"
	"github.com/dmitrymomot/keyverify/pkg/periodic"
)

// MemoryStore keeps cooldown window ends in a map. Elapsed windows behave
// like absent ones, so the cleanup loop started by Start or Run only bounds
// memory.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string]time.Time

	cleanupInterval time.Duration
	shutdownTimeout time.Duration
	clock           clock.Clock
	logger          *slog.Logger
	cleanup         *periodic.Loop

	armed   atomic.Int64
	removed atomic.Int64
}

// MemoryStoreStats are counters for monitoring.
type MemoryStoreStats struct {
	WindowsArmed   int64
	WindowsRemoved int64
	ActiveWindows  int
	IsRunning      bool
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often elapsed windows are dropped. Zero
// disables the cleanup loop.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithMemoryStoreShutdownTimeout bounds how long Stop waits for a cleanup pass.
func WithMemoryStoreShutdownTimeout(timeout time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if timeout > 0 {
			ms.shutdownTimeout = timeout
		}
	}
}

func WithMemoryStoreLogger(logger *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// WithMemoryStoreClock sets the clock driving the cleanup loop.
func WithMemoryStoreClock(c clock.Clock) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if c != nil {
			ms.clock = c
		}
	}
}

// NewMemoryStore creates an empty store. Cleanup runs every 5 minutes once
// started.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		windows:         make(map[string]time.Time),
		cleanupInterval: 5 * time.Minute,
		shutdownTimeout: 30 * time.Second,
		clock:           clock.Real(),
		logger:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(ms)
	}

	ms.cleanup = periodic.New("cooldown cleanup", ms.cleanupInterval,
		func(context.Context) { ms.removeElapsed(ms.clock.Now()) },
		periodic.WithClock(ms.clock),
		periodic.WithLogger(ms.logger),
		periodic.WithShutdownTimeout(ms.shutdownTimeout))
	return ms
}

// Arm opens a window for key unless one is still active at now.
func (ms *MemoryStore) Arm(ctx context.Context, key string, now time.Time, window time.Duration) (time.Time, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if next, ok := ms.windows[key]; ok && now.Before(next) {
		return next, false, nil
	}

	next := now.Add(window)
	ms.windows[key] = next
	ms.armed.Add(1)
	return next, true, nil
}

func (ms *MemoryStore) Reset(ctx context.Context, key string) error {
	ms.mu.Lock()
	delete(ms.windows, key)
	ms.mu.Unlock()
	return nil
}

// Start blocks running the cleanup loop until ctx is cancelled or Stop is
// called. It fails immediately when cleanup is disabled.
func (ms *MemoryStore) Start(ctx context.Context) error {
	return ms.cleanup.Start(ctx)
}

// Stop ends the cleanup loop.
func (ms *MemoryStore) Stop() error {
	return ms.cleanup.Stop()
}

// Run provides errgroup compatibility.
func (ms *MemoryStore) Run(ctx context.Context) func() error {
	return ms.cleanup.Run(ctx)
}

// removeElapsed drops windows that ended at or before now.
func (ms *MemoryStore) removeElapsed(now time.Time) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n := 0
	for key, next := range ms.windows {
		if !now.Before(next) {
			delete(ms.windows, key)
			n++
		}
	}
	ms.removed.Add(int64(n))
	return n
}

func (ms *MemoryStore) Stats() MemoryStoreStats {
	ms.mu.RLock()
	active := len(ms.windows)
	ms.mu.RUnlock()

	return MemoryStoreStats{
		WindowsArmed:   ms.armed.Load(),
		WindowsRemoved: ms.removed.Load(),
		ActiveWindows:  active,
		IsRunning:      ms.cleanup.Running(),
	}
}

// Healthcheck fails when cleanup is configured but not running.
func (ms *MemoryStore) Healthcheck(ctx context.Context) error {
	if ms.cleanupInterval > 0 && !ms.cleanup.Running() {
		return fmt.Errorf("cooldown cleanup is configured but not running")
	}
	return nil
}
