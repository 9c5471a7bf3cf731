// Package config handles depot settings, the global depot home and
// pnpm workspace files
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// Settings configure a depot invocation. Values come, in increasing
// precedence, from defaults, a depot.{yaml,json} file in the workspace
// root, DEPOT_* environment variables and CLI flags.
type Settings struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file" json:"log_file"`
	Jobs     int    `mapstructure:"jobs" yaml:"jobs" json:"jobs"`
	Notify   bool   `mapstructure:"notify" yaml:"notify" json:"notify"`
	StateDir string `mapstructure:"state_dir" yaml:"state_dir" json:"state_dir"`
}

// Keys shared between settings files, env vars and flag bindings
const (
	KeyLogLevel = "log_level"
	KeyLogFile  = "log_file"
	KeyJobs     = "jobs"
	KeyNotify   = "notify"
	KeyStateDir = "state_dir"
)

// DefaultStateDir is relative to the workspace root
const DefaultStateDir = ".depot"

// EnvPrefix is the prefix of environment variables read by depot
const EnvPrefix = "DEPOT"

// Manager loads settings through a private viper instance
type Manager struct {
	v          *viper.Viper
	configFile string
}

// NewManager creates a settings manager. configFile, when non-empty,
// replaces the search for depot.{yaml,json}.
func NewManager(configFile string) *Manager {
	v := viper.New()
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyJobs, 0)
	v.SetDefault(KeyNotify, false)
	v.SetDefault(KeyStateDir, DefaultStateDir)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	return &Manager{v: v, configFile: configFile}
}

// Viper exposes the underlying instance so callers can bind flags
func (m *Manager) Viper() *viper.Viper {
	return m.v
}

// Load reads settings for the workspace at root. A missing settings file
// is not an error.
func (m *Manager) Load(root string) (*Settings, error) {
	if m.configFile != "" {
		m.v.SetConfigFile(m.configFile)
	} else {
		m.v.SetConfigName("depot")
		m.v.AddConfigPath(root)
	}

	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if m.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	var s Settings
	if err := m.v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ConfigFileUsed returns the settings file that was read, if any
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Validate checks settings for values depot cannot honor
func (s *Settings) Validate() error {
	if s.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", s.Jobs)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %q", s.LogLevel)
	}
	return nil
}

// StatePath resolves the state directory against the workspace root
func (s *Settings) StatePath(root string) string {
	dir := s.StateDir
	if dir == "" {
		dir = DefaultStateDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}
