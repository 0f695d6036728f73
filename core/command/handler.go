package command

import (
	"context"
	"fmt"
	"reflect"
)

// Handler processes one command type.
type Handler interface {
	Name() string
	Handle(ctx context.Context, payload any) error
}

// HandlerFunc adapts a typed function to Handler.
type HandlerFunc[T any] struct {
	name string
	fn   func(context.Context, T) error
}

// NewHandlerFunc wraps fn as the handler for commands of type T and
// registers T for decoding.
//
//	handler := command.NewHandlerFunc(func(ctx context.Context, msg flow.ExpireSession) error {
//		_, err := engine.Expire(ctx, msg.SessionID)
//		return err
//	})
func NewHandlerFunc[T any](fn func(context.Context, T) error) Handler {
	return &HandlerFunc[T]{name: commands.add(reflect.TypeFor[T]()), fn: fn}
}

func (h *HandlerFunc[T]) Name() string {
	return h.name
}

// Handle rejects payloads that are not a T.
func (h *HandlerFunc[T]) Handle(ctx context.Context, payload any) error {
	cmd, ok := payload.(T)
	if !ok {
		return fmt.Errorf("command %s: unexpected payload %T", h.name, payload)
	}
	return h.fn(ctx, cmd)
}

// safeHandle calls handler and turns a panic into ErrHandlerPanicked.
func safeHandle(ctx context.Context, handler Handler, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanicked, handler.Name(), r)
		}
	}()
	return handler.Handle(ctx, payload)
}
