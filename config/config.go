// Package config loads the engine configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	formversion "github.com/goliatone/go-formversion"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendNone   = "none"

	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config is the root configuration.
type Config struct {
	Cache      CacheConfig      `yaml:"cache"`
	Roles      RolesConfig      `yaml:"roles"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CacheConfig selects and tunes the template cache store.
type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	TTL        time.Duration `yaml:"ttl"`
	Sweep      string        `yaml:"sweep"`
	SQLitePath string        `yaml:"sqlite_path"`
	Table      string        `yaml:"table"`
}

type RolesConfig struct {
	// Admin requests always see live pages.
	Admin string `yaml:"admin"`
}

type ValidationConfig struct {
	// Location is the IANA zone submission dates are read in.
	Location string `yaml:"location"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		Cache: CacheConfig{
			Backend:    BackendMemory,
			TTL:        time.Hour,
			Sweep:      "@every 10m",
			SQLitePath: "formversion-cache.db",
			Table:      "template_cache",
		},
		Roles:      RolesConfig{Admin: "ADMIN"},
		Validation: ValidationConfig{Location: "Europe/London"},
		Logging:    LoggingConfig{Level: "info", Format: FormatConsole},
	}
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, formversion.NewError(formversion.ErrInvalidConfig, "read config", err, map[string]any{
			"path": path,
		})
	}
	return Parse(data)
}

// Parse decodes YAML (or JSON) over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, formversion.NewError(formversion.ErrInvalidConfig, "decode config", err, nil)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Roles.Admin = strings.TrimSpace(c.Roles.Admin)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case BackendMemory, BackendNone, BackendRedis:
	case BackendSQLite:
		if strings.TrimSpace(c.Cache.SQLitePath) == "" {
			return invalid("cache.sqlite_path", "required for the sqlite backend")
		}
	default:
		return invalid("cache.backend", fmt.Sprintf("unknown backend %q", c.Cache.Backend))
	}
	if c.Cache.TTL < 0 {
		return invalid("cache.ttl", "must not be negative")
	}
	if c.Roles.Admin == "" {
		return invalid("roles.admin", "required")
	}
	if _, err := c.Location(); err != nil {
		return invalid("validation.location", err.Error())
	}
	switch c.Logging.Format {
	case "", FormatConsole, FormatJSON:
	default:
		return invalid("logging.format", fmt.Sprintf("unknown format %q", c.Logging.Format))
	}
	return nil
}

// Location resolves the validation zone. An empty name means UTC.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Validation.Location)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func invalid(field, reason string) error {
	return formversion.NewError(formversion.ErrInvalidConfig, "invalid "+field+": "+reason, nil, map[string]any{
		"field": field,
	})
}
