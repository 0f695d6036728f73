// Package config fills configuration structs from the environment.
//
// Struct fields use caarlos0/env tags. A .env file in the working directory
// is loaded once, before the first parse, when present:
//
//	type Config struct {
//		DB       pg.Config
//		Redis    redis.Config
//		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// The first successful load of each type is cached; later calls for the
// same type return the cached value even if the environment changed.
// MustLoad panics instead of returning an error and is meant for main.
package config
