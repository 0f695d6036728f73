package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/keyverify/core/interaction"
	"github.com/dmitrymomot/keyverify/core/logger"
	"github.com/dmitrymomot/keyverify/core/product"
	"github.com/dmitrymomot/keyverify/pkg/ratelimiter"
)

// Session kinds created by the engine.
const (
	KindAddProduct    interaction.Kind = "add_product"
	KindRemoveSelect  interaction.Kind = "remove_select"
	KindRemoveConfirm interaction.Kind = "remove_confirm"
	KindVerify        interaction.Kind = "verify"
)

// Session payload keys.
const (
	payloadName       = "name"
	payloadSecret     = "secret"
	payloadLicenseKey = "license_key"
)

// Config holds flow timeouts loaded from the environment.
type Config struct {
	AddProductTimeout    time.Duration `env:"ADD_PRODUCT_TIMEOUT" envDefault:"180s"`
	RemoveSelectTimeout  time.Duration `env:"REMOVE_SELECT_TIMEOUT" envDefault:"180s"`
	RemoveConfirmTimeout time.Duration `env:"REMOVE_CONFIRM_TIMEOUT" envDefault:"30s"`
	VerifyTimeout        time.Duration `env:"VERIFY_TIMEOUT" envDefault:"60s"`
	RoleNamePrefix       string        `env:"ROLE_NAME_PREFIX" envDefault:"Verified-"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		AddProductTimeout:    180 * time.Second,
		RemoveSelectTimeout:  180 * time.Second,
		RemoveConfirmTimeout: 30 * time.Second,
		VerifyTimeout:        60 * time.Second,
		RoleNamePrefix:       "Verified-",
	}
}

// Engine runs the product registration, removal and verification flows.
// Entry steps are called by the platform adapter directly; resumptions
// arrive as messages (see Handlers) and race through the session claim.
type Engine struct {
	sessions  *interaction.Manager
	catalog   *product.Catalog
	cooldown  *ratelimiter.Cooldown
	roles     RoleProvisioner
	licenses  LicenseAuthority
	presenter Presenter
	cfg       Config
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCooldown throttles entry steps per user. Without it nothing is throttled.
func WithCooldown(c *ratelimiter.Cooldown) Option {
	return func(e *Engine) {
		e.cooldown = c
	}
}

// WithRoleProvisioner sets the platform role backend.
func WithRoleProvisioner(r RoleProvisioner) Option {
	return func(e *Engine) {
		if r != nil {
			e.roles = r
		}
	}
}

// WithLicenseAuthority sets the license backend.
func WithLicenseAuthority(l LicenseAuthority) Option {
	return func(e *Engine) {
		if l != nil {
			e.licenses = l
		}
	}
}

// WithPresenter sets where outcomes are shown.
func WithPresenter(p Presenter) Option {
	return func(e *Engine) {
		if p != nil {
			e.presenter = p
		}
	}
}

// WithConfig overrides timeouts. Zero values keep the defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		def := DefaultConfig()
		if cfg.AddProductTimeout <= 0 {
			cfg.AddProductTimeout = def.AddProductTimeout
		}
		if cfg.RemoveSelectTimeout <= 0 {
			cfg.RemoveSelectTimeout = def.RemoveSelectTimeout
		}
		if cfg.RemoveConfirmTimeout <= 0 {
			cfg.RemoveConfirmTimeout = def.RemoveConfirmTimeout
		}
		if cfg.VerifyTimeout <= 0 {
			cfg.VerifyTimeout = def.VerifyTimeout
		}
		if cfg.RoleNamePrefix == "" {
			cfg.RoleNamePrefix = def.RoleNamePrefix
		}
		e.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine. Role and license collaborators default to
// implementations that fail with ErrNotConfigured.
func NewEngine(sessions *interaction.Manager, catalog *product.Catalog, opts ...Option) *Engine {
	e := &Engine{
		sessions: sessions,
		catalog:  catalog,
		roles:    unconfiguredRoles{},
		licenses: unconfiguredLicenses{},
		cfg:      DefaultConfig(),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.presenter == nil {
		e.presenter = NewLogPresenter(e.logger)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// run executes one step. Panics and errors the step did not already report
// through finish become a generic Failed outcome on surface and StateFailed;
// the error is still returned so the dispatcher can count it.
func (e *Engine) run(ctx context.Context, step, surface string, fn func(ctx context.Context) (State, error)) (state State, err error) {
	log := e.logger.With(logger.Action(step))
	tr := &stepTrace{}
	ctx = context.WithValue(ctx, stepKey{}, tr)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrStepPanicked, step, r)
			log.ErrorContext(ctx, "flow step panicked",
				logger.Error(err),
				logger.Stack())
			state = e.fail(ctx, tr, surface)
		}
	}()

	state, err = fn(ctx)
	if err != nil {
		log.ErrorContext(ctx, "flow step failed", logger.Error(err), logger.State(state.String()))
		if !tr.settled {
			state = e.fail(ctx, tr, surface)
		}
		return state, err
	}

	log.DebugContext(ctx, "flow step finished", logger.State(state.String()))
	return state, nil
}

type stepKey struct{}

// stepTrace records whether the running step already showed its terminal
// outcome.
type stepTrace struct {
	settled bool
}

func settle(ctx context.Context) {
	if tr, ok := ctx.Value(stepKey{}).(*stepTrace); ok {
		tr.settled = true
	}
}

// fail shows the generic failure for a step that ended without reporting.
func (e *Engine) fail(ctx context.Context, tr *stepTrace, surface string) State {
	if surface == "" || tr.settled {
		return StateFailed
	}
	return e.finish(ctx, surface, Outcome{Kind: OutcomeFailed, Reason: ReasonInternal}, StateFailed)
}

// present shows an intermediate outcome. Errors are logged only.
func (e *Engine) present(ctx context.Context, surface string, out Outcome) {
	if err := e.presenter.Present(ctx, surface, out); err != nil {
		e.logger.WarnContext(ctx, "present outcome",
			logger.Error(err),
			logger.Outcome(string(out.Kind)),
			logger.SessionID(out.SessionID))
	}
}

// finish shows a terminal outcome. If nobody can see it the flow is
// Abandoned instead of state.
func (e *Engine) finish(ctx context.Context, surface string, out Outcome, state State) State {
	settle(ctx)
	err := e.presenter.Present(ctx, surface, out)
	switch {
	case err == nil:
		return state
	case errors.Is(err, ErrSurfaceUnavailable):
		e.logger.InfoContext(ctx, "outcome surface gone, flow abandoned",
			logger.Outcome(string(out.Kind)),
			logger.SessionID(out.SessionID))
		return StateAbandoned
	default:
		e.logger.WarnContext(ctx, "present outcome",
			logger.Error(err),
			logger.Outcome(string(out.Kind)),
			logger.SessionID(out.SessionID))
		return state
	}
}

// throttle arms the actor's cooldown. It returns true when the step must stop.
func (e *Engine) throttle(ctx context.Context, a Actor) (bool, error) {
	if e.cooldown == nil {
		return false, nil
	}
	res, err := e.cooldown.CheckAndArm(ctx, a.UserID)
	if err != nil {
		return true, fmt.Errorf("check cooldown: %w", err)
	}
	if res.Allowed() {
		return false, nil
	}
	e.present(ctx, a.Surface, Outcome{Kind: OutcomeThrottled, RetryAfter: res.RetryAfter})
	return true, nil
}

// authorize rejects actors who do not own the scope.
func (e *Engine) authorize(ctx context.Context, a Actor) bool {
	if a.IsScopeOwner() {
		return true
	}
	e.logger.InfoContext(ctx, "owner-only step denied",
		logger.Error(ErrNotOwner),
		logger.UserID(a.UserID),
		logger.Scope(a.Scope))
	e.present(ctx, a.Surface, Outcome{Kind: OutcomeAuthorizationDenied})
	return false
}

// resume is the common prelude of every resumption: ownership peek, kind
// check, then the atomic claim. ok is false when the step is already
// decided; state then holds the result.
func (e *Engine) resume(ctx context.Context, a Actor, id string, kind interaction.Kind) (s interaction.Session, state State, ok bool, err error) {
	peeked, err := e.sessions.Peek(ctx, id)
	switch {
	case errors.Is(err, interaction.ErrNotFound):
		e.logger.DebugContext(ctx, "session already handled", logger.SessionID(id))
		return s, StateAlreadyHandled, false, nil
	case err != nil:
		return s, StateFailed, false, fmt.Errorf("peek session: %w", err)
	}

	if !peeked.IsOwnedBy(a.UserID) {
		e.present(ctx, a.Surface, Outcome{Kind: OutcomeNotSessionOwner, SessionID: id})
		return s, StateRejected, false, nil
	}
	if peeked.Kind != kind {
		e.logger.WarnContext(ctx, "session kind mismatch",
			logger.SessionID(id),
			slog.String("want", string(kind)),
			slog.String("got", string(peeked.Kind)))
		e.present(ctx, a.Surface, Outcome{Kind: OutcomeInvalidInput, SessionID: id})
		return s, StateRejected, false, nil
	}

	s, err = e.sessions.Claim(ctx, id)
	switch {
	case errors.Is(err, interaction.ErrNotFound):
		e.logger.DebugContext(ctx, "lost claim race", logger.SessionID(id))
		return s, StateAlreadyHandled, false, nil
	case errors.Is(err, interaction.ErrExpired):
		// The sweeper had not run yet; this claim stands in for it.
		return s, e.finish(ctx, s.Surface, Outcome{Kind: OutcomeTimedOut, SessionID: id}, StateExpired), false, nil
	case err != nil:
		return s, StateFailed, false, fmt.Errorf("claim session: %w", err)
	}
	return s, StateResolving, true, nil
}

// surfaceOf picks where a resumption's outcome goes: the session's prompt,
// else the resuming interaction.
func surfaceOf(s interaction.Session, a Actor) string {
	if s.Surface != "" {
		return s.Surface
	}
	return a.Surface
}

// roleName is the name used for auto-created roles.
func (e *Engine) roleName(productName string) string {
	return e.cfg.RoleNamePrefix + productName
}

type unconfiguredRoles struct{}

func (unconfiguredRoles) CreateRole(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (unconfiguredRoles) FindRole(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (unconfiguredRoles) GrantRole(context.Context, string, string, string) error {
	return ErrNotConfigured
}

type unconfiguredLicenses struct{}

func (unconfiguredLicenses) Verify(context.Context, string, string) (License, error) {
	return License{}, ErrNotConfigured
}
