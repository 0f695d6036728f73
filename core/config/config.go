package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once
	mu         sync.Mutex
	cache      = make(map[reflect.Type]any)
)

// Load parses environment variables into dst. The first successful load of
// a type is cached and copied into dst on later calls.
func Load[T any](dst *T) error {
	if dst == nil {
		return fmt.Errorf("config: nil destination")
	}

	dotenvOnce.Do(func() {
		// A missing .env file is normal outside development.
		_ = godotenv.Load()
	})

	key := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[key]; ok {
		*dst = cached.(T)
		return nil
	}

	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", key, err)
	}
	cache[key] = cfg
	*dst = cfg
	return nil
}

// MustLoad is like Load but panics on error.
func MustLoad[T any](dst *T) {
	if err := Load(dst); err != nil {
		panic(err)
	}
}
