package interaction

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/keyverify/core/logger"
	"github.com/dmitrymomot/keyverify/pkg/clock"
)

const defaultCreateAttempts = 5

// Params describes a session to create. Deadline is CreatedAt plus TTL.
type Params struct {
	Kind    Kind
	Owner   string
	Scope   string
	Surface string
	Payload map[string]string
	TTL     time.Duration
}

// Manager creates, claims and evicts sessions on top of a Store.
type Manager struct {
	store    Store
	clock    clock.Clock
	logger   *slog.Logger
	newID    func() string
	attempts int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock sets the time source.
func WithClock(c clock.Clock) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager creates a manager over store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		clock:    clock.Real(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:    NewID,
		attempts: defaultCreateAttempts,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewID returns a 12 character hex token taken from a random UUID.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:6])
}

// Create stores a new session and returns it. Id collisions are retried
// with a fresh id and never reach the caller.
func (m *Manager) Create(ctx context.Context, p Params) (Session, error) {
	if p.TTL <= 0 {
		return Session{}, errors.Join(ErrInvalidSession, errors.New("ttl must be positive"))
	}

	now := m.clock.Now()
	s := Session{
		Kind:      p.Kind,
		Owner:     p.Owner,
		Scope:     p.Scope,
		Surface:   p.Surface,
		Payload:   maps.Clone(p.Payload),
		CreatedAt: now,
		Deadline:  now.Add(p.TTL),
	}

	for range m.attempts {
		s.ID = m.newID()
		err := m.store.Put(ctx, s)
		if err == nil {
			m.logger.DebugContext(ctx, "interaction session created",
				logger.SessionID(s.ID),
				logger.Scope(s.Scope),
				slog.String("kind", string(s.Kind)),
				slog.Time("deadline", s.Deadline))
			return s, nil
		}
		if !errors.Is(err, ErrDuplicateID) {
			return Session{}, err
		}
		m.logger.DebugContext(ctx, "interaction session id collision, retrying", logger.SessionID(s.ID))
	}
	return Session{}, ErrIDGeneration
}

// Peek returns the session without consuming it.
func (m *Manager) Peek(ctx context.Context, id string) (Session, error) {
	return m.store.Peek(ctx, id)
}

// Claim consumes the session for a user resumption. ErrNotFound means the
// session was already resolved. A session claimed after its deadline is
// returned together with ErrExpired; it is gone from the store either way.
func (m *Manager) Claim(ctx context.Context, id string) (Session, error) {
	s, err := m.store.ClaimAndRemove(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !s.IsLive(m.clock.Now()) {
		return s, ErrExpired
	}
	return s, nil
}

// Evict consumes the session on behalf of the timeout path. It fails with
// ErrNotExpired while the session is live and with ErrNotFound when it was
// already resolved.
func (m *Manager) Evict(ctx context.Context, id string) (Session, error) {
	return m.store.ClaimExpired(ctx, id, m.clock.Now())
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.clock.Now()
}
