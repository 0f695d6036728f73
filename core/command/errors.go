package command

import "errors"

var (
	// ErrHandlerNotFound is returned when a command has no registered handler.
	ErrHandlerNotFound = errors.New("no handler registered for command")

	// ErrHandlerAlreadyRegistered is raised when a second handler is registered for a command.
	ErrHandlerAlreadyRegistered = errors.New("handler already registered for command")

	// ErrBufferFull is returned by the channel transport when its buffer is full.
	ErrBufferFull = errors.New("command buffer is full")

	// ErrTransportStopped is returned when dispatching after Stop.
	ErrTransportStopped = errors.New("command transport is stopped")

	// ErrHandlerPanicked wraps a recovered handler panic.
	ErrHandlerPanicked = errors.New("command handler panicked")
)
