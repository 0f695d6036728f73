package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
)

// Dispatcher routes commands to their handlers through a transport.
//
//	dispatcher := command.NewDispatcher(
//		command.WithChannelTransport(256, command.WithWorkers(8)),
//		command.WithLogger(log),
//		command.WithMiddleware(command.LoggingMiddleware(log)),
//	)
//	dispatcher.Register(command.NewHandlerFunc(engine.HandleChooseRole))
//	err := dispatcher.Dispatch(ctx, flow.ChooseRole{SessionID: id, RoleRef: "r1"})
type Dispatcher struct {
	mu         sync.RWMutex
	handlers   map[string]Handler
	middleware []Middleware

	transport    Transport
	channel      *channelTransport
	channelCfg   *channelConfig
	errorHandler func(context.Context, string, error)
	logger       *slog.Logger
}

type channelConfig struct {
	bufferSize int
	opts       []ChannelOption
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// Stats reports dispatcher activity. Counters are only kept by the channel
// transport.
type Stats struct {
	Handlers  int
	Processed int64
	Failed    int64
	Queued    int
	Running   bool
}

// NewDispatcher creates a dispatcher. The sync transport is the default.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.channelCfg != nil {
		d.channel = newChannelTransport(d.channelCfg.bufferSize, d.getHandler, d.errorHandler, d.logger, d.channelCfg.opts...)
		d.transport = d.channel
	} else {
		d.transport = &syncTransport{lookup: d.getHandler}
	}
	return d
}

// WithSyncTransport runs commands in the caller's goroutine.
func WithSyncTransport() Option {
	return func(d *Dispatcher) {
		d.channelCfg = nil
	}
}

// WithChannelTransport runs commands on worker goroutines fed by a buffered
// channel. Call Stop (or Run) for graceful shutdown.
func WithChannelTransport(bufferSize int, opts ...ChannelOption) Option {
	return func(d *Dispatcher) {
		d.channelCfg = &channelConfig{bufferSize: bufferSize, opts: opts}
	}
}

// WithErrorHandler sets a callback for errors from async handlers, which
// cannot be returned to the caller.
func WithErrorHandler(handler func(context.Context, string, error)) Option {
	return func(d *Dispatcher) {
		d.errorHandler = handler
	}
}

// WithLogger sets the logger for the dispatcher.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMiddleware sets middleware applied to every handler, first outermost.
func WithMiddleware(middleware ...Middleware) Option {
	return func(d *Dispatcher) {
		d.middleware = middleware
	}
}

// Register adds handlers. Panics if a command already has a handler.
func (d *Dispatcher) Register(handlers ...Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, h := range handlers {
		name := h.Name()
		if _, exists := d.handlers[name]; exists {
			panic(fmt.Sprintf("%s: %s", ErrHandlerAlreadyRegistered, name))
		}
		d.handlers[name] = h
	}
}

// Dispatch sends cmd to its handler. With the sync transport the handler's
// error is returned; with the channel transport only enqueue errors are.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd any) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", ErrHandlerNotFound)
	}
	return d.transport.Dispatch(ctx, commands.nameOf(reflect.TypeOf(cmd)), cmd)
}

// Stop drains the channel transport. No-op for the sync transport.
func (d *Dispatcher) Stop() error {
	if d.channel != nil {
		return d.channel.Stop()
	}
	return nil
}

// Run returns an errgroup-compatible function that stops the dispatcher
// once ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) func() error {
	return func() error {
		<-ctx.Done()
		return d.Stop()
	}
}

// Stats returns current dispatcher statistics.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	s := Stats{Handlers: len(d.handlers), Running: true}
	d.mu.RUnlock()

	if d.channel != nil {
		s.Processed, s.Failed, s.Queued, s.Running = d.channel.stats()
	}
	return s
}

// Healthcheck fails once the dispatcher has been stopped.
func (d *Dispatcher) Healthcheck(ctx context.Context) error {
	if !d.Stats().Running {
		return errors.New("command dispatcher is stopped")
	}
	return nil
}

// getHandler looks up a handler and applies middleware.
func (d *Dispatcher) getHandler(cmdName string) (Handler, bool) {
	d.mu.RLock()
	handler, exists := d.handlers[cmdName]
	middleware := d.middleware
	d.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if len(middleware) > 0 {
		handler = chain(handler, middleware)
	}
	return handler, true
}
