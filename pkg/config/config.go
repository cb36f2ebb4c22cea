// Package config loads identy settings from a TOML file.
//
// The default location is ~/.config/identy/config.toml (following the
// user config dir convention). A missing file is not an error: every
// setting has a sensible default, and flags override the file.
//
// Example:
//
//	[defaults]
//	radius = 4
//	border = 1
//	black = false
//	variant = 0
//
//	[output]
//	dir = "~/icons"
//
//	[server]
//	addr = ":8080"
//	cache_ttl = "1h"
//
//	[redis]
//	addr = "localhost:6379"
//
//	[mongo]
//	uri = "mongodb://localhost:27017"
//	database = "identy"
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/onerbs/identy/pkg/errors"
)

// appName is the directory name under the user config dir.
const appName = "identy"

// Duration wraps time.Duration for TOML strings like "90s" or "1h".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config is the root configuration.
type Config struct {
	Defaults Defaults `toml:"defaults"`
	Output   Output   `toml:"output"`
	Server   Server   `toml:"server"`
	Redis    Redis    `toml:"redis"`
	Mongo    Mongo    `toml:"mongo"`
}

// Defaults are the generation parameters applied when flags are absent.
type Defaults struct {
	Radius  int  `toml:"radius"`
	Border  int  `toml:"border"`
	Black   bool `toml:"black"`
	Variant int  `toml:"variant"`
}

// Output controls where generated files land.
type Output struct {
	Dir string `toml:"dir"`
}

// Server configures the avatar HTTP server.
type Server struct {
	Addr     string   `toml:"addr"`
	CacheTTL Duration `toml:"cache_ttl"`
}

// Redis configures the optional Redis cache backend.
// An empty Addr disables Redis and the server falls back to the file cache.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Mongo configures the optional MongoDB icon store.
// An empty URI disables Mongo and the server keeps records in memory.
type Mongo struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Defaults: Defaults{Radius: 4, Border: 1},
		Output:   Output{Dir: "."},
		Server: Server{
			Addr:     ":8080",
			CacheTTL: Duration{time.Hour},
		},
		Mongo: Mongo{Database: appName},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// Load reads the config file at path, layered over the defaults.
// An empty path means the default location. A missing file returns the
// defaults; a malformed file returns an INVALID_CONFIG error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Default(), errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}

	return cfg, nil
}
