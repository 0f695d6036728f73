package keyverify

import (
	"github.com/dmitrymomot/keyverify/core/flow"
	"github.com/dmitrymomot/keyverify/core/healthcheck"
	"github.com/dmitrymomot/keyverify/core/interaction"
	"github.com/dmitrymomot/keyverify/integration/database/pg"
	"github.com/dmitrymomot/keyverify/integration/database/redis"
	"github.com/dmitrymomot/keyverify/pkg/ratelimiter"
	"github.com/dmitrymomot/keyverify/pkg/secrets"
)

// Backend names accepted by SESSION_STORE and RATE_LIMIT_STORE.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the whole application configuration, read from the environment.
// DB.ConnectionString (DATABASE_URL) selects Postgres or, with the
// sqlite:// scheme, SQLite.
type Config struct {
	DB        pg.Config
	Redis     redis.Config
	Secrets   secrets.Config
	Sessions  interaction.Config
	RateLimit ratelimiter.Config
	Flow      flow.Config
	Health    healthcheck.Config
	Commands  CommandConfig

	AppName        string `env:"APP_NAME" envDefault:"keyverify"`
	Env            string `env:"APP_ENV" envDefault:"development"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	RateLimitStore string `env:"RATE_LIMIT_STORE" envDefault:"memory"`
}

// CommandConfig sizes the resumption message queue.
type CommandConfig struct {
	BufferSize int `env:"COMMAND_BUFFER_SIZE" envDefault:"256"`
	Workers    int `env:"COMMAND_WORKERS" envDefault:"4"`
}

func (c Config) needsRedis() bool {
	return c.Sessions.Backend == BackendRedis || c.RateLimitStore == BackendRedis
}
