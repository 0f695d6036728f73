package flow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyverify/core/flow"
	"github.com/dmitrymomot/keyverify/core/interaction"
	"github.com/dmitrymomot/keyverify/core/product"
	"github.com/dmitrymomot/keyverify/pkg/clock"
	"github.com/dmitrymomot/keyverify/pkg/ratelimiter"
	"github.com/dmitrymomot/keyverify/pkg/secrets"
)

const (
	guild = "G"
	owner = "U"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type presented struct {
	Surface string
	Outcome flow.Outcome
}

type fakePresenter struct {
	mu      sync.Mutex
	events  []presented
	goneFor map[string]bool
}

func (p *fakePresenter) Present(_ context.Context, surface string, out flow.Outcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, presented{Surface: surface, Outcome: out})
	if p.goneFor[surface] {
		return flow.ErrSurfaceUnavailable
	}
	return nil
}

func (p *fakePresenter) kinds() []flow.OutcomeKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]flow.OutcomeKind, len(p.events))
	for i, e := range p.events {
		kinds[i] = e.Outcome.Kind
	}
	return kinds
}

func (p *fakePresenter) last() flow.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return flow.Outcome{}
	}
	return p.events[len(p.events)-1].Outcome
}

func (p *fakePresenter) count(kind flow.OutcomeKind) int {
	n := 0
	for _, k := range p.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

type fakeRoles struct {
	mu        sync.Mutex
	roles     map[string]string
	grants    map[string][]string
	created   int
	createErr error
	grantErr  error
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{roles: map[string]string{}, grants: map[string][]string{}}
}

func (r *fakeRoles) CreateRole(_ context.Context, scope, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return "", r.createErr
	}
	r.created++
	ref := fmt.Sprintf("role-%d", r.created)
	r.roles[scope+"/"+name] = ref
	return ref, nil
}

func (r *fakeRoles) FindRole(_ context.Context, scope, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref, ok := r.roles[scope+"/"+name]; ok {
		return ref, nil
	}
	return "", flow.ErrRoleNotFound
}

func (r *fakeRoles) GrantRole(_ context.Context, scope, userID, roleRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grantErr != nil {
		return r.grantErr
	}
	r.grants[userID] = append(r.grants[userID], roleRef)
	return nil
}

func (r *fakeRoles) createdCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created
}

type fakeLicenses struct {
	secret   string
	licenses map[string]flow.License
	err      error
}

func (l *fakeLicenses) Verify(_ context.Context, productSecret, licenseKey string) (flow.License, error) {
	if l.err != nil {
		return flow.License{}, l.err
	}
	if productSecret != l.secret {
		return flow.License{}, flow.ErrInvalidLicense
	}
	lic, ok := l.licenses[licenseKey]
	if !ok {
		return flow.License{}, flow.ErrInvalidLicense
	}
	return lic, nil
}

// faultySessions fails chosen operations of a memory session store.
type faultySessions struct {
	*interaction.MemoryStore

	mu       sync.Mutex
	putErr   error
	peekErr  error
	claimErr error
}

func (f *faultySessions) fail(put, peek, claim error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putErr, f.peekErr, f.claimErr = put, peek, claim
}

func (f *faultySessions) Put(ctx context.Context, s interaction.Session) error {
	f.mu.Lock()
	err := f.putErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.Put(ctx, s)
}

func (f *faultySessions) Peek(ctx context.Context, id string) (interaction.Session, error) {
	f.mu.Lock()
	err := f.peekErr
	f.mu.Unlock()
	if err != nil {
		return interaction.Session{}, err
	}
	return f.MemoryStore.Peek(ctx, id)
}

func (f *faultySessions) ClaimAndRemove(ctx context.Context, id string) (interaction.Session, error) {
	f.mu.Lock()
	err := f.claimErr
	f.mu.Unlock()
	if err != nil {
		return interaction.Session{}, err
	}
	return f.MemoryStore.ClaimAndRemove(ctx, id)
}

// faultyProducts fails chosen operations of a memory product store.
type faultyProducts struct {
	*product.MemoryStore

	mu      sync.Mutex
	listErr error
	delErr  error
}

func (f *faultyProducts) fail(list, del error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr, f.delErr = list, del
}

func (f *faultyProducts) ListByScope(ctx context.Context, scope string) ([]product.Record, error) {
	f.mu.Lock()
	err := f.listErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.MemoryStore.ListByScope(ctx, scope)
}

func (f *faultyProducts) DeleteByName(ctx context.Context, scope, name string) error {
	f.mu.Lock()
	err := f.delErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.DeleteByName(ctx, scope, name)
}

type harness struct {
	clock     *clock.FakeClock
	store     *interaction.MemoryStore
	sessions  *faultySessions
	manager   *interaction.Manager
	products  *product.MemoryStore
	faults    *faultyProducts
	catalog   *product.Catalog
	presenter *fakePresenter
	roles     *fakeRoles
	licenses  *fakeLicenses
	engine    *flow.Engine
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	ids      []string
	cooldown time.Duration
}

// withIDs makes the engine hand out the given session ids in order.
func withIDs(ids ...string) harnessOption {
	return func(c *harnessConfig) { c.ids = ids }
}

func withCooldown(d time.Duration) harnessOption {
	return func(c *harnessConfig) { c.cooldown = d }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	var cfg harnessConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	appKey, err := secrets.GenerateKey()
	require.NoError(t, err)
	workspaceKey, err := secrets.GenerateKey()
	require.NoError(t, err)
	codec, err := secrets.NewCodec(appKey, workspaceKey)
	require.NoError(t, err)

	h := &harness{
		clock:     clock.Fake(epoch),
		store:     interaction.NewMemoryStore(),
		products:  product.NewMemoryStore(),
		presenter: &fakePresenter{goneFor: map[string]bool{}},
		roles:     newFakeRoles(),
		licenses:  &fakeLicenses{licenses: map[string]flow.License{}},
	}
	h.sessions = &faultySessions{MemoryStore: h.store}
	h.faults = &faultyProducts{MemoryStore: h.products}
	h.catalog = product.NewCatalog(h.faults, codec)

	managerOpts := []interaction.ManagerOption{interaction.WithClock(h.clock)}
	if len(cfg.ids) > 0 {
		var mu sync.Mutex
		next := 0
		managerOpts = append(managerOpts, interaction.WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			if next < len(cfg.ids) {
				next++
				return cfg.ids[next-1]
			}
			return interaction.NewID()
		}))
	}

	engineOpts := []flow.Option{
		flow.WithRoleProvisioner(h.roles),
		flow.WithLicenseAuthority(h.licenses),
		flow.WithPresenter(h.presenter),
	}
	if cfg.cooldown > 0 {
		cd, err := ratelimiter.NewCooldown(ratelimiter.NewMemoryStore(), cfg.cooldown, ratelimiter.WithClock(h.clock))
		require.NoError(t, err)
		engineOpts = append(engineOpts, flow.WithCooldown(cd))
	}

	h.manager = interaction.NewManager(h.sessions, managerOpts...)
	h.engine = flow.NewEngine(h.manager, h.catalog, engineOpts...)
	return h
}

func ownerActor() flow.Actor {
	return flow.Actor{UserID: owner, Scope: guild, ScopeOwner: owner, Surface: "prompt"}
}

func memberActor(id string) flow.Actor {
	return flow.Actor{UserID: id, Scope: guild, ScopeOwner: owner, Surface: "prompt-" + id}
}

// submit runs the add-product form and returns the new session id.
func (h *harness) submit(t *testing.T, name, secret string) string {
	t.Helper()
	state, err := h.engine.SubmitProduct(context.Background(), ownerActor(), name, secret)
	require.NoError(t, err)
	require.Equal(t, flow.StateAwaitingChoice, state)
	out := h.presenter.last()
	require.Equal(t, flow.OutcomePromptRole, out.Kind)
	return out.SessionID
}
