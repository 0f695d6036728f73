package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/keyverify/core/interaction"
	"github.com/dmitrymomot/keyverify/core/logger"
	"github.com/dmitrymomot/keyverify/core/product"
)

// BeginRemoveProduct lists the scope's products and asks which to remove.
func (e *Engine) BeginRemoveProduct(ctx context.Context, a Actor) (State, error) {
	return e.run(ctx, "remove_product.begin", a.Surface, func(ctx context.Context) (State, error) {
		if !e.authorize(ctx, a) {
			return StateRejected, nil
		}
		if stop, err := e.throttle(ctx, a); stop {
			return StateRejected, err
		}

		names, err := e.catalog.Names(ctx, a.Scope)
		if err != nil {
			return StateFailed, fmt.Errorf("list products: %w", err)
		}
		if len(names) == 0 {
			return e.finish(ctx, a.Surface, Outcome{Kind: OutcomeNoProducts}, StateRejected), nil
		}

		s, err := e.sessions.Create(ctx, interaction.Params{
			Kind:    KindRemoveSelect,
			Owner:   a.UserID,
			Scope:   a.Scope,
			Surface: a.Surface,
			TTL:     e.cfg.RemoveSelectTimeout,
		})
		if err != nil {
			return StateFailed, fmt.Errorf("create session: %w", err)
		}

		e.present(ctx, s.Surface, Outcome{Kind: OutcomePromptProductChoice, SessionID: s.ID, Choices: names})
		return StateAwaitingChoice, nil
	})
}

// SelectRemoval consumes the selection session and opens a shorter
// confirmation session for the chosen product.
func (e *Engine) SelectRemoval(ctx context.Context, a Actor, sessionID, name string) (State, error) {
	return e.run(ctx, "remove_product.select", a.Surface, func(ctx context.Context) (State, error) {
		s, state, ok, err := e.resume(ctx, a, sessionID, KindRemoveSelect)
		if !ok {
			return state, err
		}

		confirm, err := e.sessions.Create(ctx, interaction.Params{
			Kind:    KindRemoveConfirm,
			Owner:   s.Owner,
			Scope:   s.Scope,
			Surface: surfaceOf(s, a),
			Payload: map[string]string{payloadName: name},
			TTL:     e.cfg.RemoveConfirmTimeout,
		})
		if err != nil {
			return StateFailed, fmt.Errorf("create session: %w", err)
		}

		e.present(ctx, confirm.Surface, Outcome{Kind: OutcomePromptConfirm, SessionID: confirm.ID, Product: name})
		return StateAwaitingChoice, nil
	})
}

// ConfirmRemoval deletes the product named in the confirmation session.
func (e *Engine) ConfirmRemoval(ctx context.Context, a Actor, sessionID string) (State, error) {
	return e.run(ctx, "remove_product.confirm", a.Surface, func(ctx context.Context) (State, error) {
		s, state, ok, err := e.resume(ctx, a, sessionID, KindRemoveConfirm)
		if !ok {
			return state, err
		}
		surface := surfaceOf(s, a)
		name := s.Value(payloadName)

		err = e.catalog.Remove(ctx, s.Scope, name)
		switch {
		case errors.Is(err, product.ErrNotFound):
			return e.finish(ctx, surface, Outcome{Kind: OutcomeProductNotFound, SessionID: s.ID, Product: name}, StateRejected), nil
		case err != nil:
			state := e.finish(ctx, surface, Outcome{Kind: OutcomeFailed, SessionID: s.ID, Product: name, Reason: ReasonRemoveFailed}, StateFailed)
			return state, fmt.Errorf("remove product: %w", err)
		}

		e.logger.InfoContext(ctx, "product removed",
			logger.SessionID(s.ID),
			logger.Scope(s.Scope),
			logger.Product(name))
		return e.finish(ctx, surface, Outcome{Kind: OutcomeRemoved, SessionID: s.ID, Product: name}, StateCommitted), nil
	})
}

// CancelRemoval ends a confirmation session without deleting anything.
func (e *Engine) CancelRemoval(ctx context.Context, a Actor, sessionID string) (State, error) {
	return e.run(ctx, "remove_product.cancel", a.Surface, func(ctx context.Context) (State, error) {
		s, state, ok, err := e.resume(ctx, a, sessionID, KindRemoveConfirm)
		if !ok {
			return state, err
		}
		return e.finish(ctx, surfaceOf(s, a), Outcome{Kind: OutcomeCancelled, SessionID: s.ID, Product: s.Value(payloadName)}, StateCancelled), nil
	})
}
