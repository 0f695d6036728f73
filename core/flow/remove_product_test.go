package flow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyverify/core/flow"
	"github.com/dmitrymomot/keyverify/core/product"
)

func beginRemoval(t *testing.T, h *harness) string {
	t.Helper()
	state, err := h.engine.BeginRemoveProduct(context.Background(), ownerActor())
	require.NoError(t, err)
	require.Equal(t, flow.StateAwaitingChoice, state)
	out := h.presenter.last()
	require.Equal(t, flow.OutcomePromptProductChoice, out.Kind)
	return out.SessionID
}

func TestRemoveProduct_Confirm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.catalog.Register(ctx, guild, "Alpha", "a", ""))
	require.NoError(t, h.catalog.Register(ctx, guild, "Beta", "b", ""))

	selectID := beginRemoval(t, h)
	assert.Equal(t, []string{"Alpha", "Beta"}, h.presenter.last().Choices)

	state, err := h.engine.SelectRemoval(ctx, ownerActor(), selectID, "Beta")
	require.NoError(t, err)
	assert.Equal(t, flow.StateAwaitingChoice, state)
	prompt := h.presenter.last()
	require.Equal(t, flow.OutcomePromptConfirm, prompt.Kind)
	assert.Equal(t, "Beta", prompt.Product)
	assert.NotEqual(t, selectID, prompt.SessionID)

	confirm, err := h.store.Peek(ctx, prompt.SessionID)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(30*time.Second), confirm.Deadline)
	assert.Equal(t, 1, h.store.Len(), "selection session consumed")

	state, err = h.engine.ConfirmRemoval(ctx, ownerActor(), prompt.SessionID)
	require.NoError(t, err)
	assert.Equal(t, flow.StateCommitted, state)
	assert.Equal(t, flow.OutcomeRemoved, h.presenter.last().Kind)

	names, err := h.catalog.Names(ctx, guild)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, names)
}

func TestRemoveProduct_Cancel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.catalog.Register(ctx, guild, "Alpha", "a", ""))

	selectID := beginRemoval(t, h)
	_, err := h.engine.SelectRemoval(ctx, ownerActor(), selectID, "Alpha")
	require.NoError(t, err)
	confirmID := h.presenter.last().SessionID

	state, err := h.engine.CancelRemoval(ctx, ownerActor(), confirmID)
	require.NoError(t, err)
	assert.Equal(t, flow.StateCancelled, state)
	assert.Equal(t, flow.OutcomeCancelled, h.presenter.last().Kind)

	state, err = h.engine.ConfirmRemoval(ctx, ownerActor(), confirmID)
	require.NoError(t, err)
	assert.Equal(t, flow.StateAlreadyHandled, state)

	_, err = h.catalog.Lookup(ctx, guild, "Alpha")
	assert.NoError(t, err)
}

func TestRemoveProduct_NoProducts(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	state, err := h.engine.BeginRemoveProduct(context.Background(), ownerActor())
	require.NoError(t, err)
	assert.Equal(t, flow.StateRejected, state)
	assert.Equal(t, flow.OutcomeNoProducts, h.presenter.last().Kind)
	assert.Zero(t, h.store.Len())
}

func TestRemoveProduct_ProductVanished(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.catalog.Register(ctx, guild, "Alpha", "a", ""))

	selectID := beginRemoval(t, h)
	_, err := h.engine.SelectRemoval(ctx, ownerActor(), selectID, "Alpha")
	require.NoError(t, err)
	confirmID := h.presenter.last().SessionID

	require.NoError(t, h.catalog.Remove(ctx, guild, "Alpha"))

	state, err := h.engine.ConfirmRemoval(ctx, ownerActor(), confirmID)
	require.NoError(t, err)
	assert.Equal(t, flow.StateRejected, state)
	assert.Equal(t, flow.OutcomeProductNotFound, h.presenter.last().Kind)
}

func TestRemoveProduct_ConfirmTimesOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.catalog.Register(ctx, guild, "Alpha", "a", ""))

	selectID := beginRemoval(t, h)
	_, err := h.engine.SelectRemoval(ctx, ownerActor(), selectID, "Alpha")
	require.NoError(t, err)
	confirmID := h.presenter.last().SessionID

	h.clock.Advance(30 * time.Second)
	state, err := h.engine.Expire(ctx, confirmID)
	require.NoError(t, err)
	assert.Equal(t, flow.StateExpired, state)

	state, err = h.engine.Expire(ctx, selectID)
	require.NoError(t, err)
	assert.Equal(t, flow.StateAlreadyHandled, state, "selection was consumed by the select step")

	_, err = h.catalog.Lookup(ctx, guild, "Alpha")
	assert.NoError(t, err)
}

func TestRemoveProduct_OwnerOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.catalog.Register(ctx, guild, "Alpha", "a", ""))

	state, err := h.engine.BeginRemoveProduct(ctx, memberActor("M"))
	require.NoError(t, err)
	assert.Equal(t, flow.StateRejected, state)
	assert.Equal(t, flow.OutcomeAuthorizationDenied, h.presenter.last().Kind)

	_, err = h.catalog.Lookup(ctx, guild, "Alpha")
	assert.NotErrorIs(t, err, product.ErrNotFound)
}
