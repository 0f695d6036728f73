package command_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyverify/core/command"
	"github.com/dmitrymomot/keyverify/core/logger"
)

type ChannelTestCommand struct {
	N int `json:"n"`
}

type ChannelFailCommand struct {
	Panic bool `json:"panic"`
}

func TestChannelTransport_ProcessesAndDrains(t *testing.T) {
	t.Parallel()

	var sum atomic.Int64
	d := command.NewDispatcher(
		command.WithChannelTransport(100, command.WithWorkers(4)),
		command.WithLogger(logger.Nop()),
	)
	d.Register(command.NewHandlerFunc(func(ctx context.Context, cmd ChannelTestCommand) error {
		sum.Add(int64(cmd.N))
		return nil
	}))

	for i := 1; i <= 50; i++ {
		require.NoError(t, d.Dispatch(context.Background(), ChannelTestCommand{N: i}))
	}

	require.NoError(t, d.Stop())
	assert.Equal(t, int64(1275), sum.Load())

	stats := d.Stats()
	assert.Equal(t, int64(50), stats.Processed)
	assert.False(t, stats.Running)
	assert.Error(t, d.Healthcheck(context.Background()))

	assert.ErrorIs(t, d.Dispatch(context.Background(), ChannelTestCommand{N: 1}), command.ErrTransportStopped)
}

func TestChannelTransport_DetachedContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	result := make(chan error, 1)

	d := command.NewDispatcher(command.WithChannelTransport(1))
	d.Register(command.NewHandlerFunc(func(ctx context.Context, cmd ChannelTestCommand) error {
		<-release
		result <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Dispatch(ctx, ChannelTestCommand{N: 1}))
	cancel()
	close(release)

	select {
	case err := <-result:
		assert.NoError(t, err, "handler must not see the caller's cancellation")
	case <-time.After(time.Second):
		t.Fatal("handler did not run")
	}
	require.NoError(t, d.Stop())
}

func TestChannelTransport_ErrorsAndPanics(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var errs []error
	d := command.NewDispatcher(
		command.WithChannelTransport(10),
		command.WithErrorHandler(func(ctx context.Context, name string, err error) {
			mu.Lock()
			defer mu.Unlock()
			errs = append(errs, err)
		}),
	)
	d.Register(command.NewHandlerFunc(func(ctx context.Context, cmd ChannelFailCommand) error {
		if cmd.Panic {
			panic("worker must survive")
		}
		return errors.New("plain failure")
	}))

	require.NoError(t, d.Dispatch(context.Background(), ChannelFailCommand{Panic: true}))
	require.NoError(t, d.Dispatch(context.Background(), ChannelFailCommand{}))
	require.NoError(t, d.Stop())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], command.ErrHandlerPanicked)
	assert.EqualError(t, errs[1], "plain failure")
	assert.Equal(t, int64(2), d.Stats().Failed)
}

func TestChannelTransport_FailFast(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	d := command.NewDispatcher(command.WithChannelTransport(1))
	d.Register(command.NewHandlerFunc(func(ctx context.Context, cmd ChannelTestCommand) error {
		<-block
		return nil
	}))

	assert.ErrorIs(t, d.Dispatch(context.Background(), AnotherCommand{}), command.ErrHandlerNotFound)

	// One command occupies the worker, one fills the buffer.
	require.NoError(t, d.Dispatch(context.Background(), ChannelTestCommand{N: 1}))
	require.Eventually(t, func() bool { return d.Stats().Queued == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Dispatch(context.Background(), ChannelTestCommand{N: 2}))
	assert.ErrorIs(t, d.Dispatch(context.Background(), ChannelTestCommand{N: 3}), command.ErrBufferFull)

	close(block)
	require.NoError(t, d.Stop())
}

func TestDispatcher_Run(t *testing.T) {
	t.Parallel()

	d := command.NewDispatcher(command.WithChannelTransport(1))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx)() }()
	cancel()

	assert.NoError(t, <-done)
	assert.False(t, d.Stats().Running)
}
