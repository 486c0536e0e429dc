package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-b", "postgres", "-f", "u.json", "-d", "db",
				"-s", "secret", "-g", "HS512", "-t", "5", "-l", "debug",
			},
			expected: &Config{
				EndpointAddrHTTP:            "127.0.0.1:9090",
				StorageBackend:              "postgres",
				DataFile:                    "u.json",
				DatabaseDSN:                 "db",
				SecretKey:                   "secret",
				Algorithm:                   "HS512",
				AccessTokenValidityDuration: 5 * time.Minute,
				LogLevel:                    "debug",
			},
		},
		{
			name: "foreign flags and positionals are ignored",
			args: []string{"-c", "conf.json", "delete", "alice", "-s", "k"},
			expected: &Config{
				SecretKey:                   "k",
				AccessTokenValidityDuration: 90 * time.Second,
			},
		},
		{
			name:    "bad integer",
			args:    []string{"-t", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{AccessTokenValidityDuration: 90 * time.Second}
			err := parseFlags(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
