package interaction

import "time"

// Config holds session engine settings loaded from the environment.
type Config struct {
	Backend        string        `env:"SESSION_STORE" envDefault:"memory"`
	SweepInterval  time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1s"`
	SweepBatch     int           `env:"SESSION_SWEEP_BATCH" envDefault:"100"`
	RedisPrefix    string        `env:"SESSION_REDIS_PREFIX" envDefault:"keyverify:session"`
	RedisRetention time.Duration `env:"SESSION_REDIS_RETENTION" envDefault:"10m"`
}

// Store backends accepted in Config.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)
