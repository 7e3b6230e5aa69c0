// Package config loads, validates and saves the ticketdep TOML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/atomic"
)

type Config struct {
	General      General                `toml:"general"`
	Database     Database               `toml:"database"`
	TicketCustom map[string]CustomField `toml:"ticket_custom"`
}

type General struct {
	LogLevel string `toml:"log_level"`
	Locale   string `toml:"locale"` // BCP 47 tag for user-facing messages
}

type Database struct {
	Driver string `toml:"driver"` // "sqlite", "mysql"
	DSN    string `toml:"dsn"`
}

// CustomField is the definition of one custom ticket field.
type CustomField struct {
	Type  string `toml:"type"` // "text", "textarea", "select", "checkbox", "radio", "time"
	Label string `toml:"label,omitempty"`
	Cols  int    `toml:"cols,omitempty"`
	Rows  int    `toml:"rows,omitempty"`
}

var knownFieldTypes = map[string]struct{}{
	"text":     {},
	"textarea": {},
	"select":   {},
	"checkbox": {},
	"radio":    {},
	"time":     {},
}

var knownDrivers = map[string]struct{}{
	"sqlite": {},
	"mysql":  {},
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save validates cfg and writes it to path atomically.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir %s: %w", dir, err)
		}
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.Locale == "" {
		cfg.General.Locale = "en"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "ticketdep.db"
	}
	if cfg.TicketCustom == nil {
		cfg.TicketCustom = make(map[string]CustomField)
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.General.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", cfg.General.LogLevel)
	}

	if _, ok := knownDrivers[cfg.Database.Driver]; !ok {
		return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required for driver %q", cfg.Database.Driver)
	}

	for name, field := range cfg.TicketCustom {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("ticket_custom field with empty name")
		}
		if _, ok := knownFieldTypes[field.Type]; !ok {
			return fmt.Errorf("ticket_custom field %q has unknown type %q", name, field.Type)
		}
		if field.Cols < 0 || field.Rows < 0 {
			return fmt.Errorf("ticket_custom field %q has negative size", name)
		}
	}

	return nil
}

// HasCustomField reports whether a custom field called name is defined.
func (c *Config) HasCustomField(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.TicketCustom[name]
	return ok
}

// FieldLabel returns the configured label of a custom field, or "".
func (c *Config) FieldLabel(name string) string {
	if c == nil {
		return ""
	}
	return c.TicketCustom[name].Label
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	cp.TicketCustom = maps.Clone(c.TicketCustom)
	return &cp
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
