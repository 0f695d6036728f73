package command

import (
	"context"
	"fmt"
)

// Transport delivers a named command to its handler.
type Transport interface {
	Dispatch(ctx context.Context, cmdName string, payload any) error
}

// lookupFunc resolves a command name to its middleware-wrapped handler.
type lookupFunc func(name string) (Handler, bool)

// envelope is a queued command.
type envelope struct {
	ctx     context.Context
	Name    string
	Payload []byte
}

// syncTransport runs the handler in the caller's goroutine.
type syncTransport struct {
	lookup lookupFunc
}

func (t *syncTransport) Dispatch(ctx context.Context, cmdName string, payload any) error {
	handler, ok := t.lookup(cmdName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrHandlerNotFound, cmdName)
	}
	return safeHandle(ctx, handler, payload)
}
