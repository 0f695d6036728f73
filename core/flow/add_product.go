package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/keyverify/core/interaction"
	"github.com/dmitrymomot/keyverify/core/logger"
	"github.com/dmitrymomot/keyverify/core/product"
)

// BeginAddProduct starts product registration: owner check, cooldown, then
// the product form prompt. No session exists yet.
func (e *Engine) BeginAddProduct(ctx context.Context, a Actor) (State, error) {
	return e.run(ctx, "add_product.begin", a.Surface, func(ctx context.Context) (State, error) {
		if !e.authorize(ctx, a) {
			return StateRejected, nil
		}
		if stop, err := e.throttle(ctx, a); stop {
			return StateRejected, err
		}
		e.present(ctx, a.Surface, Outcome{Kind: OutcomePromptProductForm})
		return StateCreated, nil
	})
}

// SubmitProduct takes the submitted form, stores an add_product session and
// asks for a role. The secret is sealed before it enters the session.
func (e *Engine) SubmitProduct(ctx context.Context, a Actor, name, secret string) (State, error) {
	return e.run(ctx, "add_product.submit", a.Surface, func(ctx context.Context) (State, error) {
		if !e.authorize(ctx, a) {
			return StateRejected, nil
		}

		name, err := product.NormalizeName(name)
		if err != nil {
			e.present(ctx, a.Surface, Outcome{Kind: OutcomeInvalidInput, Reason: ReasonEmptyName})
			return StateRejected, nil
		}
		secret, err = product.NormalizeSecret(secret)
		if err != nil {
			e.present(ctx, a.Surface, Outcome{Kind: OutcomeInvalidInput, Reason: ReasonEmptySecret})
			return StateRejected, nil
		}
		sealed, err := e.catalog.Seal(secret)
		if err != nil {
			return StateFailed, err
		}

		s, err := e.sessions.Create(ctx, interaction.Params{
			Kind:    KindAddProduct,
			Owner:   a.UserID,
			Scope:   a.Scope,
			Surface: a.Surface,
			Payload: map[string]string{payloadName: name, payloadSecret: sealed},
			TTL:     e.cfg.AddProductTimeout,
		})
		if err != nil {
			return StateFailed, fmt.Errorf("create session: %w", err)
		}

		e.present(ctx, s.Surface, Outcome{Kind: OutcomePromptRole, SessionID: s.ID, Product: name})
		return StateAwaitingChoice, nil
	})
}

// ChooseRole resumes an add_product session with an existing role.
func (e *Engine) ChooseRole(ctx context.Context, a Actor, sessionID, roleRef string) (State, error) {
	return e.run(ctx, "add_product.choose_role", a.Surface, func(ctx context.Context) (State, error) {
		s, state, ok, err := e.resume(ctx, a, sessionID, KindAddProduct)
		if !ok {
			return state, err
		}
		return e.commitProduct(ctx, s, surfaceOf(s, a), roleRef)
	})
}

// AutoCreateRole resumes an add_product session by creating a dedicated
// role first. The claim precedes role creation, so a timeout racing this
// step can never leave an orphan role behind a TimedOut message.
func (e *Engine) AutoCreateRole(ctx context.Context, a Actor, sessionID string) (State, error) {
	return e.run(ctx, "add_product.auto_role", a.Surface, func(ctx context.Context) (State, error) {
		s, state, ok, err := e.resume(ctx, a, sessionID, KindAddProduct)
		if !ok {
			return state, err
		}
		surface := surfaceOf(s, a)
		name := s.Value(payloadName)

		roleRef, err := e.roles.CreateRole(ctx, s.Scope, e.roleName(name))
		if err != nil {
			reason := ReasonRoleCreationFailed
			if errors.Is(err, ErrPermissionDenied) {
				reason = ReasonMissingRolePermission
			}
			e.logger.WarnContext(ctx, "role creation failed",
				logger.Error(err),
				logger.SessionID(s.ID),
				logger.Scope(s.Scope),
				logger.Product(name))
			return e.finish(ctx, surface, Outcome{Kind: OutcomeFailed, SessionID: s.ID, Product: name, Reason: reason}, StateFailed), nil
		}
		e.present(ctx, surface, Outcome{Kind: OutcomeRoleCreated, SessionID: s.ID, Product: name, RoleRef: roleRef})

		return e.commitProduct(ctx, s, surface, roleRef)
	})
}

func (e *Engine) commitProduct(ctx context.Context, s interaction.Session, surface, roleRef string) (State, error) {
	name := s.Value(payloadName)

	err := e.catalog.RegisterSealed(ctx, s.Scope, name, s.Value(payloadSecret), roleRef)
	switch {
	case errors.Is(err, product.ErrConflict):
		return e.finish(ctx, surface, Outcome{Kind: OutcomeAlreadyExists, SessionID: s.ID, Product: name}, StateRejected), nil
	case err != nil:
		state := e.finish(ctx, surface, Outcome{Kind: OutcomeFailed, SessionID: s.ID, Product: name, Reason: ReasonSaveFailed}, StateFailed)
		return state, fmt.Errorf("register product: %w", err)
	}

	e.logger.InfoContext(ctx, "product registered",
		logger.SessionID(s.ID),
		logger.Scope(s.Scope),
		logger.Product(name))
	return e.finish(ctx, surface, Outcome{Kind: OutcomeCreated, SessionID: s.ID, Product: name, RoleRef: roleRef}, StateCommitted), nil
}
