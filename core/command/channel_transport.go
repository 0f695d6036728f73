package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/keyverify/core/logger"
)

// channelTransport executes commands asynchronously on worker goroutines.
// Payloads are serialized to JSON on dispatch, so a handler never shares
// memory with the dispatching caller, and the handler context is detached
// from the caller's cancellation.
type channelTransport struct {
	mu      sync.RWMutex
	ch      chan envelope
	stopped bool

	lookup          lookupFunc
	errorHandler    func(context.Context, string, error)
	logger          *slog.Logger
	workers         int
	shutdownTimeout time.Duration
	wg              sync.WaitGroup
	stopOnce        sync.Once

	processed atomic.Int64
	failed    atomic.Int64
}

// ChannelOption configures the channel transport.
type ChannelOption func(*channelTransport)

// WithWorkers sets the number of worker goroutines. Default is 1.
func WithWorkers(n int) ChannelOption {
	return func(t *channelTransport) {
		if n > 0 {
			t.workers = n
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for queued commands.
func WithShutdownTimeout(d time.Duration) ChannelOption {
	return func(t *channelTransport) {
		if d > 0 {
			t.shutdownTimeout = d
		}
	}
}

func newChannelTransport(
	bufferSize int,
	lookup lookupFunc,
	errorHandler func(context.Context, string, error),
	log *slog.Logger,
	opts ...ChannelOption,
) *channelTransport {
	t := &channelTransport{
		ch:              make(chan envelope, bufferSize),
		lookup:          lookup,
		errorHandler:    errorHandler,
		logger:          log,
		workers:         1,
		shutdownTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}

	for range t.workers {
		t.wg.Add(1)
		go t.worker()
	}
	return t
}

// Dispatch enqueues a command. It fails fast when no handler exists, when
// the buffer is full, or after Stop.
func (t *channelTransport) Dispatch(ctx context.Context, cmdName string, payload any) error {
	if _, exists := t.lookup(cmdName); !exists {
		return fmt.Errorf("%w: %s", ErrHandlerNotFound, cmdName)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal command %s: %w", cmdName, err)
	}

	env := envelope{
		ctx:     context.WithoutCancel(ctx),
		Name:    cmdName,
		Payload: data,
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.stopped {
		return ErrTransportStopped
	}

	select {
	case t.ch <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

func (t *channelTransport) worker() {
	defer t.wg.Done()

	for env := range t.ch {
		t.handleCommand(env)
	}
}

func (t *channelTransport) handleCommand(env envelope) {
	ctx := env.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	cmd, err := UnmarshalCommand(env.Name, env.Payload)
	if err != nil {
		t.fail(ctx, env.Name, err)
		return
	}

	handler, exists := t.lookup(env.Name)
	if !exists {
		t.fail(ctx, env.Name, fmt.Errorf("%w: %s", ErrHandlerNotFound, env.Name))
		return
	}

	if err := safeHandle(ctx, handler, cmd); err != nil {
		t.fail(ctx, env.Name, err)
		return
	}
	t.processed.Add(1)
}

func (t *channelTransport) fail(ctx context.Context, name string, err error) {
	t.failed.Add(1)
	t.logger.ErrorContext(ctx, "command failed",
		slog.String("command", name),
		logger.Error(err))

	if t.errorHandler != nil {
		t.errorHandler(ctx, name, err)
	}
}

// Stop closes the queue and waits for workers to drain it.
func (t *channelTransport) Stop() error {
	var err error
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.stopped = true
		close(t.ch)
		t.mu.Unlock()

		done := make(chan struct{})
		go func() {
			t.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			t.logger.Info("channel transport stopped gracefully")
		case <-time.After(t.shutdownTimeout):
			t.logger.Warn("channel transport shutdown timeout",
				slog.Duration("timeout", t.shutdownTimeout))
			err = fmt.Errorf("shutdown timeout exceeded after %s", t.shutdownTimeout)
		}
	})
	return err
}

func (t *channelTransport) stats() (processed, failed int64, queued int, running bool) {
	t.mu.RLock()
	running = !t.stopped
	t.mu.RUnlock()
	return t.processed.Load(), t.failed.Load(), len(t.ch), running
}
