package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig lists the recognised environment variables. Unset variables
// leave the matching pointer nil and the current value untouched.
type envConfig struct {
	EndpointAddrHTTP         *string `env:"AUTH_HTTP_ADDR"`
	StorageBackend           *string `env:"AUTH_STORAGE"`
	DataFile                 *string `env:"AUTH_DATA_FILE"`
	DatabaseDSN              *string `env:"AUTH_DATABASE_DSN"`
	SecretKey                *string `env:"SECRET_KEY"`
	Algorithm                *string `env:"AUTH_ALGORITHM"`
	AccessTokenExpireMinutes *int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	LogLevel                 *string `env:"AUTH_LOG_LEVEL"`
}

// parseEnv overlays config with environment variables. A nil environ means
// the process environment.
func parseEnv(config *Config, environ map[string]string) error {
	var e envConfig

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&e, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&config.EndpointAddrHTTP, e.EndpointAddrHTTP)
	setString(&config.StorageBackend, e.StorageBackend)
	setString(&config.DataFile, e.DataFile)
	setString(&config.DatabaseDSN, e.DatabaseDSN)
	setString(&config.SecretKey, e.SecretKey)
	setString(&config.Algorithm, e.Algorithm)
	setString(&config.LogLevel, e.LogLevel)
	if e.AccessTokenExpireMinutes != nil {
		config.AccessTokenValidityDuration = time.Duration(*e.AccessTokenExpireMinutes) * time.Minute
	}
	return nil
}
