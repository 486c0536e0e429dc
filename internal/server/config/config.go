// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"time"
)

// Storage backends understood by the server.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Config holds runtime settings for the authkeeper server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - StorageBackend: "file" (JSON document) or "postgres".
//   - DataFile: path of the JSON user document (file backend).
//   - DatabaseDSN: PostgreSQL DSN (pgx), postgres backend only.
//   - SecretKey: HMAC secret for signing tokens. Empty means issuance fails.
//   - Algorithm: JWT HMAC algorithm identifier (HS256, HS384, HS512).
//   - AccessTokenValidityDuration: default lifetime of issued tokens.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	EndpointAddrHTTP            string
	StorageBackend              string
	DataFile                    string
	DatabaseDSN                 string
	SecretKey                   string
	Algorithm                   string
	AccessTokenValidityDuration time.Duration
	LogLevel                    string
}

// LoadDefaults populates Config with development defaults.
// SecretKey is deliberately left empty: it must come from the environment,
// the JSON file or the -s flag.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8000"
	c.StorageBackend = StorageFile
	c.DataFile = "data/users.json"
	c.DatabaseDSN = ""
	c.SecretKey = ""
	c.Algorithm = "HS256"
	c.AccessTokenValidityDuration = 30 * time.Minute
	c.LogLevel = "info"
}

// Validate reports settings that make the server unable to start.
// A missing SecretKey is not one of them; it only fails token issuance.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageFile:
		if c.DataFile == "" {
			return fmt.Errorf("data file path is required for %q storage", StorageFile)
		}
	case StoragePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("database DSN is required for %q storage", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.AccessTokenValidityDuration <= 0 {
		return fmt.Errorf("access token validity must be positive, got %s", c.AccessTokenValidityDuration)
	}
	return nil
}

// Load builds a Config by applying defaults, then overlaying values from an
// optional JSON file, the environment and finally the command-line flags.
func Load(args []string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, environ); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], nil)
}
