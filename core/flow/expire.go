package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/keyverify/core/interaction"
	"github.com/dmitrymomot/keyverify/core/logger"
)

// Expire is the timeout resumption. It claims the session only if its
// deadline has passed and then tells the initiator, best effort. A session
// that was already resolved or is still live is left alone.
func (e *Engine) Expire(ctx context.Context, sessionID string) (State, error) {
	return e.run(ctx, "expire", "", func(ctx context.Context) (State, error) {
		s, err := e.sessions.Evict(ctx, sessionID)
		switch {
		case errors.Is(err, interaction.ErrNotFound):
			e.logger.DebugContext(ctx, "expired session already handled", logger.SessionID(sessionID))
			return StateAlreadyHandled, nil
		case errors.Is(err, interaction.ErrNotExpired):
			e.logger.DebugContext(ctx, "session still live, not expiring", logger.SessionID(sessionID))
			return StateAwaitingChoice, nil
		case err != nil:
			return StateAwaitingChoice, fmt.Errorf("evict session: %w", err)
		}

		if err := e.presenter.Present(ctx, s.Surface, Outcome{Kind: OutcomeTimedOut, SessionID: s.ID, Product: s.Value(payloadName)}); err != nil {
			e.logger.DebugContext(ctx, "timeout notification not delivered",
				logger.Error(err),
				logger.SessionID(s.ID))
		}
		return StateExpired, nil
	})
}
