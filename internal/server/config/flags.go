package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// serverFlags are the short flags owned by the server config.
var serverFlags = []string{"-a", "-b", "-f", "-d", "-s", "-g", "-t", "-l"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-b string   storage backend: file | postgres
//	-f string   JSON user document path
//	-d string   PostgreSQL DSN
//	-s string   token signing secret key
//	-g string   token signing algorithm (HS256, HS384, HS512)
//	-t int      access token validity, minutes
//	-l string   log level
//
// Arguments that belong to other components (-c, subcommands of authctl)
// are filtered out before parsing.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.StorageBackend, "b", config.StorageBackend, "storage backend (file|postgres)")
	fs.StringVar(&config.DataFile, "f", config.DataFile, "user data file")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Algorithm, "g", config.Algorithm, "token signing algorithm")
	validity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return err
	}

	// only an explicit -t overrides, so sub-minute values from JSON survive
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.AccessTokenValidityDuration = time.Duration(*validity) * time.Minute
		}
	})
	return nil
}

// FlagNames returns the flags consumed by Load, so callers that have their
// own positional arguments can strip them.
func FlagNames() []string {
	return append([]string{"-c", "-config"}, serverFlags...)
}
