// Package command dispatches typed messages to exactly one handler each.
//
// A command is any JSON-serializable struct; its name is the struct name.
// Handlers are registered once and looked up by that name:
//
//	type ExpireSession struct {
//		SessionID string `json:"session_id"`
//	}
//
//	dispatcher := command.NewDispatcher(command.WithChannelTransport(256, command.WithWorkers(4)))
//	dispatcher.Register(command.NewHandlerFunc(func(ctx context.Context, msg ExpireSession) error {
//		return engine.Expire(ctx, msg.SessionID)
//	}))
//
//	err := dispatcher.Dispatch(ctx, ExpireSession{SessionID: id})
//
// # Transports
//
// The sync transport (default) runs the handler in the caller's goroutine
// and returns its error.
//
// The channel transport serializes the command to JSON, queues it and runs
// it on a worker. The handler receives a context detached from the caller's
// cancellation, so a cancelled request cannot abort work it already handed
// off. Dispatch fails fast with ErrBufferFull when the queue is full and
// with ErrHandlerNotFound when nothing handles the command. Handler errors
// go to the error handler set with WithErrorHandler. Stop drains the queue.
//
// # Panics
//
// Both transports recover handler panics and report them as
// ErrHandlerPanicked, so a faulty handler never takes a worker down.
package command
