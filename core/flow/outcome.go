package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/keyverify/core/logger"
)

// OutcomeKind identifies what happened. Presenters turn kinds into text;
// the engine never formats user-facing messages.
type OutcomeKind string

const (
	OutcomeAuthorizationDenied OutcomeKind = "authorization_denied"
	OutcomeThrottled           OutcomeKind = "throttled"
	OutcomeInvalidInput        OutcomeKind = "invalid_input"
	OutcomePromptProductForm   OutcomeKind = "prompt_product_form"
	OutcomePromptRole          OutcomeKind = "prompt_role"
	OutcomePromptProductChoice OutcomeKind = "prompt_product_choice"
	OutcomePromptConfirm       OutcomeKind = "prompt_confirm"
	OutcomeNotSessionOwner     OutcomeKind = "not_session_owner"
	OutcomeNoProducts          OutcomeKind = "no_products"
	OutcomeRoleCreated         OutcomeKind = "role_created"
	OutcomeCreated             OutcomeKind = "created"
	OutcomeAlreadyExists       OutcomeKind = "already_exists"
	OutcomeRemoved             OutcomeKind = "removed"
	OutcomeProductNotFound     OutcomeKind = "product_not_found"
	OutcomeCancelled           OutcomeKind = "cancelled"
	OutcomeVerified            OutcomeKind = "verified"
	OutcomeLicenseRejected     OutcomeKind = "license_rejected"
	OutcomeTimedOut            OutcomeKind = "timed_out"
	OutcomeFailed              OutcomeKind = "failed"
)

// Failure and rejection reasons carried in Outcome.Reason.
const (
	ReasonInternal               = "internal_error"
	ReasonMissingRolePermission  = "missing_permission_create_roles"
	ReasonMissingGrantPermission = "missing_permission_assign_roles"
	ReasonRoleCreationFailed     = "role_creation_failed"
	ReasonRoleGrantFailed        = "role_grant_failed"
	ReasonSaveFailed             = "save_failed"
	ReasonRemoveFailed           = "remove_failed"
	ReasonSecretUnreadable       = "product_secret_unreadable"
	ReasonLicenseServiceDown     = "license_service_unavailable"
	ReasonLicenseInvalid         = "invalid"
	ReasonLicenseDisabled        = "disabled"
	ReasonLicenseUsed            = "already_used"
	ReasonEmptyName              = "invalid_product_name"
	ReasonEmptySecret            = "invalid_product_secret"
	ReasonEmptyLicense           = "empty_license_key"
)

// Outcome is one event for the presentation layer. Only the fields that
// matter for Kind are set.
type Outcome struct {
	Kind       OutcomeKind   `json:"kind"`
	SessionID  string        `json:"session_id,omitempty"`
	Product    string        `json:"product,omitempty"`
	RoleRef    string        `json:"role_ref,omitempty"`
	Choices    []string      `json:"choices,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Uses       int           `json:"uses,omitempty"`
}

// LogPresenter writes outcomes to a logger. It is the presenter used until a
// platform adapter provides a real one.
type LogPresenter struct {
	logger *slog.Logger
}

// NewLogPresenter creates a presenter logging at info level.
func NewLogPresenter(l *slog.Logger) *LogPresenter {
	if l == nil {
		l = logger.Nop()
	}
	return &LogPresenter{logger: l}
}

func (p *LogPresenter) Present(ctx context.Context, surface string, out Outcome) error {
	p.logger.InfoContext(ctx, "interaction outcome",
		slog.String("surface", surface),
		logger.Outcome(string(out.Kind)),
		logger.SessionID(out.SessionID),
		logger.Product(out.Product),
		slog.String("reason", out.Reason))
	return nil
}
