package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyverify/pkg/clock"
	"github.com/dmitrymomot/keyverify/pkg/ratelimiter"
)

func TestCooldown_CheckAndArm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.Fake(start)

	gate, err := ratelimiter.NewCooldown(ratelimiter.NewMemoryStore(), 10*time.Second, ratelimiter.WithClock(clk))
	require.NoError(t, err)

	res, err := gate.CheckAndArm(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.NoError(t, res.Err())
	assert.Equal(t, start.Add(10*time.Second), res.NextAllowedAt)

	clk.Advance(3 * time.Second)
	res, err = gate.CheckAndArm(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.ErrorIs(t, res.Err(), ratelimiter.ErrRateLimitExceeded)
	assert.Equal(t, 7*time.Second, res.RetryAfter)
	assert.Equal(t, start.Add(10*time.Second), res.NextAllowedAt)

	t.Run("throttled attempt does not extend window", func(t *testing.T) {
		clk.Advance(7 * time.Second)
		res, err := gate.CheckAndArm(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	})

	t.Run("keys are independent", func(t *testing.T) {
		res, err := gate.CheckAndArm(ctx, "u2")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	})
}

func TestCooldown_Reset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.Fake(time.Unix(1000, 0))
	gate, err := ratelimiter.NewCooldown(ratelimiter.NewMemoryStore(), time.Minute, ratelimiter.WithClock(clk))
	require.NoError(t, err)

	res, err := gate.CheckAndArm(ctx, "u1")
	require.NoError(t, err)
	require.True(t, res.Allowed())

	require.NoError(t, gate.Reset(ctx, "u1"))

	res, err = gate.CheckAndArm(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

func TestNewCooldown_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := ratelimiter.NewCooldown(nil, time.Second)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)

	_, err = ratelimiter.NewCooldown(ratelimiter.NewMemoryStore(), 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
}

func TestNewCooldownFromConfig_Prefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := ratelimiter.NewMemoryStore()
	clk := clock.Fake(time.Unix(0, 0))

	gate, err := ratelimiter.NewCooldownFromConfig(store, ratelimiter.Config{
		Cooldown:  5 * time.Second,
		KeyPrefix: "cd:",
	}, ratelimiter.WithClock(clk))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, gate.Window())

	_, err = gate.CheckAndArm(ctx, "u1")
	require.NoError(t, err)

	_, armed, err := store.Arm(ctx, "cd:u1", clk.Now(), time.Second)
	require.NoError(t, err)
	assert.False(t, armed, "prefixed key should hold the window")
}
