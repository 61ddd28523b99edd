package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Version        int           `toml:"version"`
	ServerURL      string        `toml:"server_url"`
	DownloadURL    string        `toml:"download_url,omitempty"`
	MonitorName    string        `toml:"monitor_name"`
	DefaultChannel string        `toml:"default_channel,omitempty"`
	ExportTimeout  time.Duration `toml:"export_timeout"`
	UISettings     UISettings    `toml:"ui"`
}

// UISettings represents UI-related configuration
type UISettings struct {
	AutoRefresh    time.Duration `toml:"auto_refresh"`
	ShowStageLevel bool          `toml:"show_stage_level"`
	ConfirmKick    bool          `toml:"confirm_kick"`
}

// Service handles configuration management
type Service interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
}

type service struct {
	filePath string
}

// NewService creates a config service rooted in the user config dir.
func NewService() Service {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}

	dir := filepath.Join(configDir, "gamemon")
	os.MkdirAll(dir, 0755)

	return &service{filePath: filepath.Join(dir, "config.toml")}
}

// NewServiceAt creates a config service for an explicit file path.
func NewServiceAt(path string) Service {
	return &service{filePath: path}
}

// Load loads the configuration, falling back to defaults when the file
// does not exist yet.
func (s *service) Load() (*Config, error) {
	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return Default(), nil
	}
	return s.LoadFromPath(s.filePath)
}

// Save saves the configuration to the service's file path.
func (s *service) Save(config *Config) error {
	return s.SaveToPath(config, s.filePath)
}

// LoadFromPath loads configuration from a specific path.
func (s *service) LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// SaveToPath saves configuration to a specific path.
func (s *service) SaveToPath(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version:       1,
		ServerURL:     "ws://localhost:8080/admin/monitor",
		MonitorName:   "Monitor",
		ExportTimeout: 10 * time.Second,
		UISettings: UISettings{
			AutoRefresh:    0,
			ShowStageLevel: true,
			ConfirmKick:    true,
		},
	}
}
