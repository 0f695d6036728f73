package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyverify/core/command"
)

type DispatcherTestCommand struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type AnotherCommand struct {
	Data string `json:"data"`
}

func TestDispatcher_Sync(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("routes to handler", func(t *testing.T) {
		t.Parallel()

		var got DispatcherTestCommand
		d := command.NewDispatcher()
		d.Register(command.NewHandlerFunc(func(ctx context.Context, cmd DispatcherTestCommand) error {
			got = cmd
			return nil
		}))

		require.NoError(t, d.Dispatch(ctx, DispatcherTestCommand{ID: "1", Value: "v"}))
		assert.Equal(t, DispatcherTestCommand{ID: "1", Value: "v"}, got)
	})

	t.Run("returns handler error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		d := command.NewDispatcher(command.WithSyncTransport())
		d.Register(command.NewHandlerFunc(func(ctx context.Context, cmd DispatcherTestCommand) error {
			return boom
		}))

		assert.ErrorIs(t, d.Dispatch(ctx, DispatcherTestCommand{}), boom)
	})

	t.Run("missing handler", func(t *testing.T) {
		t.Parallel()

		d := command.NewDispatcher()
		assert.ErrorIs(t, d.Dispatch(ctx, AnotherCommand{}), command.ErrHandlerNotFound)
		assert.ErrorIs(t, d.Dispatch(ctx, nil), command.ErrHandlerNotFound)
	})

	t.Run("recovers panics", func(t *testing.T) {
		t.Parallel()

		d := command.NewDispatcher()
		d.Register(command.NewHandlerFunc(func(ctx context.Context, cmd DispatcherTestCommand) error {
			panic("kaboom")
		}))

		err := d.Dispatch(ctx, DispatcherTestCommand{})
		assert.ErrorIs(t, err, command.ErrHandlerPanicked)
		assert.Contains(t, err.Error(), "kaboom")
	})

	t.Run("pointer commands share the struct name", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "DispatcherTestCommand", command.GetCommandName(&DispatcherTestCommand{}))
	})
}

func TestDispatcher_Register(t *testing.T) {
	t.Parallel()

	d := command.NewDispatcher()
	d.Register(command.NewHandlerFunc(func(ctx context.Context, cmd DispatcherTestCommand) error { return nil }))

	assert.Panics(t, func() {
		d.Register(command.NewHandlerFunc(func(ctx context.Context, cmd DispatcherTestCommand) error { return nil }))
	})

	d.Register(command.NewHandlerFunc(func(ctx context.Context, cmd AnotherCommand) error { return nil }))
	assert.Equal(t, 2, d.Stats().Handlers)
	assert.NoError(t, d.Healthcheck(context.Background()))
}

func TestDispatcher_MiddlewareOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(tag string) command.Middleware {
		return func(next command.Handler) command.Handler {
			return command.NewHandlerFunc(func(ctx context.Context, cmd DispatcherTestCommand) error {
				order = append(order, tag)
				return next.Handle(ctx, cmd)
			})
		}
	}

	d := command.NewDispatcher(command.WithMiddleware(mw("outer"), mw("inner"), command.RecoverMiddleware()))
	d.Register(command.NewHandlerFunc(func(ctx context.Context, cmd DispatcherTestCommand) error {
		order = append(order, "handler")
		return nil
	}))

	require.NoError(t, d.Dispatch(context.Background(), DispatcherTestCommand{}))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestUnmarshalCommand(t *testing.T) {
	t.Parallel()

	_ = command.NewHandlerFunc(func(ctx context.Context, cmd AnotherCommand) error { return nil })

	v, err := command.UnmarshalCommand("AnotherCommand", []byte(`{"data":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, AnotherCommand{Data: "x"}, v)

	_, err = command.UnmarshalCommand("Unknown", []byte(`{}`))
	assert.Error(t, err)

	_, err = command.UnmarshalCommand("AnotherCommand", []byte(`{`))
	assert.Error(t, err)
}
