package flow

import (
	"context"

	"github.com/dmitrymomot/keyverify/core/command"
)

// Resumption messages. The platform adapter dispatches one when a user
// answers a prompt; the sweeper dispatches ExpireSession. Each carries the
// session id, never the session itself.

type ChooseRole struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Surface   string `json:"surface,omitempty"`
	RoleRef   string `json:"role_ref"`
}

type AutoCreateRole struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Surface   string `json:"surface,omitempty"`
}

type SelectRemoval struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Surface   string `json:"surface,omitempty"`
	Product   string `json:"product"`
}

type ConfirmRemoval struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Surface   string `json:"surface,omitempty"`
}

type CancelRemoval struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Surface   string `json:"surface,omitempty"`
}

type SelectVerification struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Surface   string `json:"surface,omitempty"`
	Product   string `json:"product"`
}

type ExpireSession struct {
	SessionID string `json:"session_id"`
}

// Handlers returns command handlers for every resumption message. Business
// outcomes are presented, not returned; only unexpected failures reach the
// dispatcher as errors.
func (e *Engine) Handlers() []command.Handler {
	actor := func(userID, surface string) Actor {
		return Actor{UserID: userID, Surface: surface}
	}
	return []command.Handler{
		command.NewHandlerFunc(func(ctx context.Context, m ChooseRole) error {
			_, err := e.ChooseRole(ctx, actor(m.UserID, m.Surface), m.SessionID, m.RoleRef)
			return err
		}),
		command.NewHandlerFunc(func(ctx context.Context, m AutoCreateRole) error {
			_, err := e.AutoCreateRole(ctx, actor(m.UserID, m.Surface), m.SessionID)
			return err
		}),
		command.NewHandlerFunc(func(ctx context.Context, m SelectRemoval) error {
			_, err := e.SelectRemoval(ctx, actor(m.UserID, m.Surface), m.SessionID, m.Product)
			return err
		}),
		command.NewHandlerFunc(func(ctx context.Context, m ConfirmRemoval) error {
			_, err := e.ConfirmRemoval(ctx, actor(m.UserID, m.Surface), m.SessionID)
			return err
		}),
		command.NewHandlerFunc(func(ctx context.Context, m CancelRemoval) error {
			_, err := e.CancelRemoval(ctx, actor(m.UserID, m.Surface), m.SessionID)
			return err
		}),
		command.NewHandlerFunc(func(ctx context.Context, m SelectVerification) error {
			_, err := e.SelectVerification(ctx, actor(m.UserID, m.Surface), m.SessionID, m.Product)
			return err
		}),
		command.NewHandlerFunc(func(ctx context.Context, m ExpireSession) error {
			_, err := e.Expire(ctx, m.SessionID)
			return err
		}),
	}
}
