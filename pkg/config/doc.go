// Package config loads environment-based configuration into typed structs.
//
// Configuration structs declare their sources with `env` tags and are parsed
// with caarlos0/env. A .env file in the working directory is honoured for
// local development.
//
//	type JWTConfig struct {
//		SigningKey string        `env:"JWT_SIGNING_KEY,required"`
//		AccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"1h"`
//	}
//
//	var cfg JWTConfig
//	config.MustLoad(&cfg)
package config
