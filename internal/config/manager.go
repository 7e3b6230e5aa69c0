package config

import (
	"fmt"
	"sync"
)

// ConfigManager holds the live configuration and the file it came from.
type ConfigManager interface {
	Get() *Config
	Set(cfg *Config)
	Reload() error
	Save() error
	Path() string
}

// RWMutexManager provides read-heavy config access using RWMutex. Snapshots
// are cloned on Set so callers cannot mutate the live config.
type RWMutexManager struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewManager constructs a manager for the config file at path.
func NewManager(path string, initial *Config) *RWMutexManager {
	return &RWMutexManager{cfg: initial.Clone(), path: path}
}

// LoadManager loads path (or defaults when it does not exist) into a manager.
func LoadManager(path string) (*RWMutexManager, error) {
	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	return NewManager(path, cfg), nil
}

// Get returns the current config pointer under a shared lock.
func (m *RWMutexManager) Get() *Config {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Set replaces the current config with a copy of cfg.
func (m *RWMutexManager) Set(cfg *Config) {
	if m == nil {
		return
	}
	cp := cfg.Clone()
	m.mu.Lock()
	m.cfg = cp
	m.mu.Unlock()
}

// Path returns the file the manager loads from and saves to.
func (m *RWMutexManager) Path() string {
	if m == nil {
		return ""
	}
	return m.path
}

// Reload loads the config file and swaps it into place.
func (m *RWMutexManager) Reload() error {
	if m == nil || m.path == "" {
		return fmt.Errorf("config reload path is required")
	}

	loaded, err := Load(m.path)
	if err != nil {
		return err
	}

	m.Set(loaded)
	return nil
}

// Save writes the current config back to its file.
func (m *RWMutexManager) Save() error {
	if m == nil || m.path == "" {
		return fmt.Errorf("config save path is required")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Save(m.path, m.cfg)
}

var _ ConfigManager = (*RWMutexManager)(nil)
