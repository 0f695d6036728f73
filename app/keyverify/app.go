package keyverify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/keyverify/core/command"
	"github.com/dmitrymomot/keyverify/core/config"
	"github.com/dmitrymomot/keyverify/core/flow"
	"github.com/dmitrymomot/keyverify/core/healthcheck"
	"github.com/dmitrymomot/keyverify/core/interaction"
	"github.com/dmitrymomot/keyverify/core/logger"
	"github.com/dmitrymomot/keyverify/core/product"
	"github.com/dmitrymomot/keyverify/db/migrations"
	"github.com/dmitrymomot/keyverify/integration/database/pg"
	"github.com/dmitrymomot/keyverify/integration/database/redis"
	"github.com/dmitrymomot/keyverify/integration/database/sqlite"
	"github.com/dmitrymomot/keyverify/pkg/clock"
	"github.com/dmitrymomot/keyverify/pkg/ratelimiter"
	"github.com/dmitrymomot/keyverify/pkg/secrets"
)

// App wires the product store, session state, flows and background loops.
type App struct {
	config     Config
	configured bool
	logger     *slog.Logger
	clock      clock.Clock

	roles     flow.RoleProvisioner
	licenses  flow.LicenseAuthority
	presenter flow.Presenter

	redis      goredis.UniversalClient
	products   product.Store
	sessions   interaction.Store
	windows    ratelimiter.Store
	memWindows *ratelimiter.MemoryStore

	engine     *flow.Engine
	dispatcher *command.Dispatcher
	sweeper    *interaction.Sweeper
	health     *healthcheck.Server

	checks  []healthcheck.Check
	closers []func() error
}

// AppOption configures an App.
type AppOption func(*App) error

// NewApp builds the application. Without WithConfig the configuration is
// read from the environment. Connections opened here are released by Close.
func NewApp(ctx context.Context, opts ...AppOption) (*App, error) {
	app := &App{clock: clock.Real()}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if !app.configured {
		if err := config.Load(&app.config); err != nil {
			return nil, err
		}
	}
	if app.logger == nil {
		app.logger = newLogger(app.config)
	}

	if err := app.build(ctx); err != nil {
		return nil, errors.Join(err, app.Close())
	}
	return app, nil
}

// WithConfig skips environment loading.
func WithConfig(cfg Config) AppOption {
	return func(app *App) error {
		app.config = cfg
		app.configured = true
		return nil
	}
}

func WithLogger(logger *slog.Logger) AppOption {
	return func(app *App) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		app.logger = logger
		return nil
	}
}

func WithClock(c clock.Clock) AppOption {
	return func(app *App) error {
		if c == nil {
			return errors.New("clock cannot be nil")
		}
		app.clock = c
		return nil
	}
}

func WithRoleProvisioner(r flow.RoleProvisioner) AppOption {
	return func(app *App) error {
		if r == nil {
			return errors.New("role provisioner cannot be nil")
		}
		app.roles = r
		return nil
	}
}

func WithLicenseAuthority(l flow.LicenseAuthority) AppOption {
	return func(app *App) error {
		if l == nil {
			return errors.New("license authority cannot be nil")
		}
		app.licenses = l
		return nil
	}
}

func WithPresenter(p flow.Presenter) AppOption {
	return func(app *App) error {
		if p == nil {
			return errors.New("presenter cannot be nil")
		}
		app.presenter = p
		return nil
	}
}

// WithRedisClient supplies an existing client instead of dialing REDIS_URL.
// The app does not close it.
func WithRedisClient(client goredis.UniversalClient) AppOption {
	return func(app *App) error {
		if client == nil {
			return errors.New("redis client cannot be nil")
		}
		app.redis = client
		return nil
	}
}

// WithProductStore supplies a product store instead of opening DATABASE_URL.
func WithProductStore(store product.Store) AppOption {
	return func(app *App) error {
		if store == nil {
			return errors.New("product store cannot be nil")
		}
		app.products = store
		return nil
	}
}

func newLogger(cfg Config) *slog.Logger {
	opts := []logger.Option{logger.WithLevelString(cfg.LogLevel)}
	switch cfg.Env {
	case "production":
		opts = append([]logger.Option{logger.WithProduction(cfg.AppName)}, opts...)
	case "staging":
		opts = append([]logger.Option{logger.WithStaging(cfg.AppName)}, opts...)
	default:
		opts = append([]logger.Option{logger.WithDevelopment(cfg.AppName)}, opts...)
	}
	return logger.New(opts...)
}

func (app *App) build(ctx context.Context) error {
	cfg := app.config

	if app.redis == nil && cfg.needsRedis() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		app.redis = client
		app.closers = append(app.closers, client.Close)
	}
	if app.redis != nil {
		app.checks = append(app.checks, redis.Healthcheck(app.redis))
	}

	if app.products == nil {
		if err := app.openProductStore(ctx); err != nil {
			return err
		}
	}

	codec, err := secrets.NewCodecFromConfig(cfg.Secrets)
	if err != nil {
		return err
	}
	catalog := product.NewCatalog(app.products, codec)

	if err := app.buildSessionStore(); err != nil {
		return err
	}
	if err := app.buildCooldownStore(); err != nil {
		return err
	}
	cooldown, err := ratelimiter.NewCooldownFromConfig(app.windows, cfg.RateLimit, ratelimiter.WithClock(app.clock))
	if err != nil {
		return err
	}

	manager := interaction.NewManager(app.sessions,
		interaction.WithClock(app.clock),
		interaction.WithLogger(app.logger.With(logger.Component("sessions"))))

	engineOpts := []flow.Option{
		flow.WithCooldown(cooldown),
		flow.WithConfig(cfg.Flow),
		flow.WithLogger(app.logger.With(logger.Component("flow"))),
		flow.WithRoleProvisioner(app.roles),
		flow.WithLicenseAuthority(app.licenses),
		flow.WithPresenter(app.presenter),
	}
	app.engine = flow.NewEngine(manager, catalog, engineOpts...)

	dispatchLog := app.logger.With(logger.Component("dispatcher"))
	app.dispatcher = command.NewDispatcher(
		command.WithChannelTransport(cfg.Commands.BufferSize, command.WithWorkers(cfg.Commands.Workers)),
		command.WithLogger(dispatchLog),
		command.WithMiddleware(command.LoggingMiddleware(dispatchLog)),
	)
	app.dispatcher.Register(app.engine.Handlers()...)
	app.checks = append(app.checks, app.dispatcher.Healthcheck)

	app.sweeper = interaction.NewSweeperFromConfig(app.sessions, app.expire, cfg.Sessions,
		interaction.WithSweeperClock(app.clock),
		interaction.WithSweeperLogger(app.logger.With(logger.Component("sweeper"))))
	app.checks = append(app.checks, app.sweeper.Healthcheck)

	app.health = healthcheck.NewServer(cfg.Health, app.logger.With(logger.Component("health")), app.checks...)
	return nil
}

func (app *App) openProductStore(ctx context.Context) error {
	url := app.config.DB.ConnectionString
	if sqlite.IsURL(url) {
		path, err := sqlite.PathFromURL(url)
		if err != nil {
			return err
		}
		db, err := sqlite.Open(ctx, path)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, db.Close)
		if err := sqlite.Migrate(ctx, db, migrations.SQLite(), app.logger); err != nil {
			return err
		}
		app.products = product.NewSQLiteStore(db)
		app.checks = append(app.checks, sqlite.Healthcheck(db))
		return nil
	}

	pool, err := pg.Connect(ctx, app.config.DB)
	if err != nil {
		return err
	}
	app.closers = append(app.closers, func() error { pool.Close(); return nil })
	if err := pg.Migrate(ctx, pool, migrations.Postgres(), app.logger); err != nil {
		return err
	}
	app.products = product.NewPostgresStore(pool)
	app.checks = append(app.checks, pg.Healthcheck(pool))
	return nil
}

func (app *App) buildSessionStore() error {
	switch app.config.Sessions.Backend {
	case "", interaction.BackendMemory:
		app.sessions = interaction.NewMemoryStore()
	case interaction.BackendRedis:
		store, err := interaction.NewRedisStore(app.redis,
			interaction.WithKeyPrefix(app.config.Sessions.RedisPrefix),
			interaction.WithRetention(app.config.Sessions.RedisRetention))
		if err != nil {
			return err
		}
		app.sessions = store
	default:
		return fmt.Errorf("unknown session store %q", app.config.Sessions.Backend)
	}
	return nil
}

func (app *App) buildCooldownStore() error {
	switch app.config.RateLimitStore {
	case "", BackendMemory:
		app.memWindows = ratelimiter.NewMemoryStore(
			ratelimiter.WithCleanupInterval(app.config.RateLimit.CleanupInterval),
			ratelimiter.WithMemoryStoreClock(app.clock),
			ratelimiter.WithMemoryStoreLogger(app.logger.With(logger.Component("cooldown"))))
		app.windows = app.memWindows
	case BackendRedis:
		app.windows = ratelimiter.NewRedisStore(app.redis)
	default:
		return fmt.Errorf("unknown rate limit store %q", app.config.RateLimitStore)
	}
	return nil
}

// expire hands a due session to the dispatcher. The sweeper never calls
// the engine directly, so expiry and user answers share one queue.
func (app *App) expire(ctx context.Context, id string) error {
	return app.dispatcher.Dispatch(ctx, flow.ExpireSession{SessionID: id})
}

// Engine exposes the flow entry steps to the platform adapter.
func (app *App) Engine() *flow.Engine {
	return app.engine
}

// Dispatch queues a resumption message such as flow.ChooseRole.
func (app *App) Dispatch(ctx context.Context, msg any) error {
	return app.dispatcher.Dispatch(ctx, msg)
}

// Sweeper returns the session sweeper.
func (app *App) Sweeper() *interaction.Sweeper {
	return app.sweeper
}

// Logger returns the application logger.
func (app *App) Logger() *slog.Logger {
	return app.logger
}

// Run starts the sweeper, the cooldown cleanup, the dispatcher and the
// health server, and blocks until ctx is cancelled or one of them fails.
func (app *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(app.sweeper.Run(ctx))
	g.Go(app.dispatcher.Run(ctx))
	g.Go(app.health.Run(ctx))
	if app.memWindows != nil && app.config.RateLimit.CleanupInterval > 0 {
		g.Go(app.memWindows.Run(ctx))
	}

	app.logger.InfoContext(ctx, "keyverify started",
		slog.String("session_store", app.config.Sessions.Backend),
		slog.String("rate_limit_store", app.config.RateLimitStore))

	err := g.Wait()
	return errors.Join(err, app.Close())
}

// Close releases connections opened by NewApp in reverse order.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i]())
	}
	app.closers = nil
	return errors.Join(errs...)
}
