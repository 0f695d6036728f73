package keyverify_test

import (
	"context"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyverify/app/keyverify"
	"github.com/dmitrymomot/keyverify/core/flow"
	"github.com/dmitrymomot/keyverify/core/healthcheck"
	"github.com/dmitrymomot/keyverify/core/interaction"
	"github.com/dmitrymomot/keyverify/core/logger"
	"github.com/dmitrymomot/keyverify/integration/database/pg"
	"github.com/dmitrymomot/keyverify/pkg/ratelimiter"
	"github.com/dmitrymomot/keyverify/pkg/secrets"
)

type recordingPresenter struct {
	mu   sync.Mutex
	outs []flow.Outcome
}

func (p *recordingPresenter) Present(_ context.Context, _ string, out flow.Outcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outs = append(p.outs, out)
	return nil
}

func (p *recordingPresenter) has(kind flow.OutcomeKind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range p.outs {
		if o.Kind == kind {
			return true
		}
	}
	return false
}

func (p *recordingPresenter) lastSessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outs[len(p.outs)-1].SessionID
}

type staticRoles struct{}

func (staticRoles) CreateRole(context.Context, string, string) (string, error) { return "role-1", nil }
func (staticRoles) FindRole(context.Context, string, string) (string, error)   { return "role-1", nil }
func (staticRoles) GrantRole(context.Context, string, string, string) error    { return nil }

func testConfig(t *testing.T) keyverify.Config {
	t.Helper()
	key := func() string {
		k, err := secrets.GenerateKey()
		require.NoError(t, err)
		return hex.EncodeToString(k)
	}
	return keyverify.Config{
		DB:      pg.Config{ConnectionString: "sqlite://:memory:"},
		Secrets: secrets.Config{AppKey: key(), WorkspaceKey: key()},
		Sessions: interaction.Config{
			Backend:       interaction.BackendMemory,
			SweepInterval: 20 * time.Millisecond,
			SweepBatch:    10,
		},
		RateLimit: ratelimiter.Config{
			Cooldown:        10 * time.Second,
			CleanupInterval: time.Minute,
			KeyPrefix:       "cooldown:",
		},
		Flow: flow.Config{
			AddProductTimeout: 500 * time.Millisecond,
		},
		Health:         healthcheck.Config{Addr: "127.0.0.1:0"},
		Commands:       keyverify.CommandConfig{BufferSize: 16, Workers: 2},
		RateLimitStore: keyverify.BackendMemory,
	}
}

func TestApp_AddProductEndToEnd(t *testing.T) {
	t.Parallel()

	presenter := &recordingPresenter{}
	app, err := keyverify.NewApp(context.Background(),
		keyverify.WithConfig(testConfig(t)),
		keyverify.WithLogger(logger.Nop()),
		keyverify.WithPresenter(presenter),
		keyverify.WithRoleProvisioner(staticRoles{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	actor := flow.Actor{UserID: "U", Scope: "G", ScopeOwner: "U", Surface: "prompt"}
	state, err := app.Engine().SubmitProduct(ctx, actor, "Widget", "secretX")
	require.NoError(t, err)
	require.Equal(t, flow.StateAwaitingChoice, state)
	id := presenter.lastSessionID()

	require.NoError(t, app.Dispatch(ctx, flow.AutoCreateRole{SessionID: id, UserID: "U"}))
	assert.Eventually(t, func() bool { return presenter.has(flow.OutcomeCreated) }, 2*time.Second, 10*time.Millisecond)

	// A second product left alone is expired by the sweeper.
	_, err = app.Engine().SubmitProduct(ctx, actor, "Gadget", "secretY")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return presenter.has(flow.OutcomeTimedOut) }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestNewApp_RejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Sessions.Backend = "etcd"
	_, err := keyverify.NewApp(context.Background(), keyverify.WithConfig(cfg), keyverify.WithLogger(logger.Nop()))
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Secrets.AppKey = "not-hex"
	_, err = keyverify.NewApp(context.Background(), keyverify.WithConfig(cfg), keyverify.WithLogger(logger.Nop()))
	assert.Error(t, err)
}

func TestNewApp_NilOptions(t *testing.T) {
	t.Parallel()

	_, err := keyverify.NewApp(context.Background(), keyverify.WithPresenter(nil))
	assert.Error(t, err)
}
