package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/keyverify/core/interaction"
	"github.com/dmitrymomot/keyverify/core/logger"
	"github.com/dmitrymomot/keyverify/core/product"
)

// BeginVerify starts license verification for any member. The key is sealed
// into a verify session and the user picks the product it belongs to.
func (e *Engine) BeginVerify(ctx context.Context, a Actor, licenseKey string) (State, error) {
	return e.run(ctx, "verify.begin", a.Surface, func(ctx context.Context) (State, error) {
		licenseKey = strings.TrimSpace(licenseKey)
		if licenseKey == "" {
			e.present(ctx, a.Surface, Outcome{Kind: OutcomeInvalidInput, Reason: ReasonEmptyLicense})
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

		sealed, err := e.catalog.Seal(licenseKey)
		if err != nil {
			return StateFailed, err
		}
		s, err := e.sessions.Create(ctx, interaction.Params{
			Kind:    KindVerify,
			Owner:   a.UserID,
			Scope:   a.Scope,
			Surface: a.Surface,
			Payload: map[string]string{payloadLicenseKey: sealed},
			TTL:     e.cfg.VerifyTimeout,
		})
		if err != nil {
			return StateFailed, fmt.Errorf("create session: %w", err)
		}

		e.present(ctx, s.Surface, Outcome{Kind: OutcomePromptProductChoice, SessionID: s.ID, Choices: names})
		return StateAwaitingChoice, nil
	})
}

// SelectVerification checks the session's license key against the chosen
// product and grants the product's role on success.
func (e *Engine) SelectVerification(ctx context.Context, a Actor, sessionID, name string) (State, error) {
	return e.run(ctx, "verify.select", a.Surface, func(ctx context.Context) (State, error) {
		s, state, ok, err := e.resume(ctx, a, sessionID, KindVerify)
		if !ok {
			return state, err
		}
		surface := surfaceOf(s, a)
		fail := func(reason string) Outcome {
			return Outcome{Kind: OutcomeFailed, SessionID: s.ID, Product: name, Reason: reason}
		}

		p, err := e.catalog.Lookup(ctx, s.Scope, name)
		switch {
		case errors.Is(err, product.ErrNotFound):
			return e.finish(ctx, surface, Outcome{Kind: OutcomeProductNotFound, SessionID: s.ID, Product: name}, StateRejected), nil
		case errors.Is(err, product.ErrSecretUnreadable):
			return e.finish(ctx, surface, fail(ReasonSecretUnreadable), StateFailed), err
		case err != nil:
			return StateFailed, fmt.Errorf("lookup product: %w", err)
		}

		licenseKey, err := e.catalog.Unseal(s.Value(payloadLicenseKey))
		if err != nil {
			return StateFailed, fmt.Errorf("unseal license key: %w", err)
		}

		lic, err := e.licenses.Verify(ctx, p.Secret, licenseKey)
		switch {
		case errors.Is(err, ErrInvalidLicense):
			return e.finish(ctx, surface, Outcome{Kind: OutcomeLicenseRejected, SessionID: s.ID, Product: name, Reason: ReasonLicenseInvalid}, StateRejected), nil
		case err != nil:
			e.logger.WarnContext(ctx, "license check failed",
				logger.Error(err),
				logger.SessionID(s.ID),
				logger.Product(name))
			return e.finish(ctx, surface, fail(ReasonLicenseServiceDown), StateFailed), nil
		case !lic.Enabled:
			return e.finish(ctx, surface, Outcome{Kind: OutcomeLicenseRejected, SessionID: s.ID, Product: name, Reason: ReasonLicenseDisabled}, StateRejected), nil
		case lic.Uses > 0:
			return e.finish(ctx, surface, Outcome{Kind: OutcomeLicenseRejected, SessionID: s.ID, Product: name, Reason: ReasonLicenseUsed, Uses: lic.Uses}, StateRejected), nil
		}

		roleRef, reason, err := e.resolveRole(ctx, s.Scope, p)
		if err != nil {
			e.logger.WarnContext(ctx, "role resolution failed",
				logger.Error(err),
				logger.SessionID(s.ID),
				logger.Product(name))
			return e.finish(ctx, surface, fail(reason), StateFailed), nil
		}

		if err := e.roles.GrantRole(ctx, s.Scope, s.Owner, roleRef); err != nil {
			reason := ReasonRoleGrantFailed
			if errors.Is(err, ErrPermissionDenied) {
				reason = ReasonMissingGrantPermission
			}
			e.logger.WarnContext(ctx, "role grant failed",
				logger.Error(err),
				logger.SessionID(s.ID),
				logger.UserID(s.Owner))
			return e.finish(ctx, surface, fail(reason), StateFailed), nil
		}

		e.logger.InfoContext(ctx, "license verified",
			logger.SessionID(s.ID),
			logger.Scope(s.Scope),
			logger.UserID(s.Owner),
			logger.Product(name))
		return e.finish(ctx, surface, Outcome{Kind: OutcomeVerified, SessionID: s.ID, Product: name, RoleRef: roleRef}, StateCommitted), nil
	})
}

// resolveRole returns the product's stored role, else the role found by
// name, else a newly created one.
func (e *Engine) resolveRole(ctx context.Context, scope string, p product.Product) (string, string, error) {
	if p.RoleRef != "" {
		return p.RoleRef, "", nil
	}

	name := e.roleName(p.Name)
	ref, err := e.roles.FindRole(ctx, scope, name)
	if err == nil {
		return ref, "", nil
	}
	if !errors.Is(err, ErrRoleNotFound) {
		return "", ReasonRoleCreationFailed, err
	}

	ref, err = e.roles.CreateRole(ctx, scope, name)
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "", ReasonMissingRolePermission, err
	case err != nil:
		return "", ReasonRoleCreationFailed, err
	}
	return ref, "", nil
}
