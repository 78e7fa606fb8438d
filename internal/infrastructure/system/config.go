// Package system provides infrastructure for system-level configuration.
// This includes loading the user config file (~/.plumbline/config.yaml).
package system

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/plumbline-dev/plumbline/internal/infrastructure/config"
)

// DefaultConfigDir is the directory under the user's home holding config.yaml.
const DefaultConfigDir = ".plumbline"

// Config represents the global configuration file (~/.plumbline/config.yaml).
type Config struct {
	Gates        config.GateConfig  `yaml:"gates" mapstructure:"gates"`
	Reasoner     ReasonerConfig     `yaml:"reasoner" mapstructure:"reasoner"`
	Images       ImagesConfig       `yaml:"images" mapstructure:"images"`
	Fingerprints FingerprintsConfig `yaml:"fingerprints" mapstructure:"fingerprints"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
}

// ReasonerConfig configures the HTTP constraint reasoner.
type ReasonerConfig struct {
	URL        string        `yaml:"url" mapstructure:"url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// ImagesConfig configures artifact image resolution.
type ImagesConfig struct {
	// Root is the directory relative image references resolve against.
	// Empty means the working directory.
	Root string `yaml:"root" mapstructure:"root"`
	// MaxBytes bounds a single image file. 0 means the resolver default.
	MaxBytes int64 `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// FingerprintsConfig configures where reference fingerprints persist.
type FingerprintsConfig struct {
	// Dir holds one file per run. Empty means ~/.plumbline/fingerprints.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// InMemory keeps fingerprints for the life of the process only.
	InMemory bool `yaml:"in_memory" mapstructure:"in_memory"`
}

// DefaultFingerprintDir returns ~/.plumbline/fingerprints, or "" when the
// home directory cannot be determined.
func DefaultFingerprintDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultConfigDir, "fingerprints")
}

// MetricsConfig configures gate metrics.
type MetricsConfig struct {
	// Textfile, when set, receives the registry in Prometheus text format
	// after each command.
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// ConfigLoader loads system configuration from disk.
type ConfigLoader struct{}

// NewConfigLoader creates a new system config loader.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{}
}

// DefaultConfigPath returns ~/.plumbline/config.yaml, or "" when the home
// directory cannot be determined.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultConfigDir, "config.yaml")
}

// DefaultConfig returns a Config with defaults for all fields.
// This is used when no system config file exists.
func DefaultConfig() *Config {
	cfg := &Config{
		Reasoner: ReasonerConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
	}
	cfg.Gates.ApplyDefaults()
	return cfg
}

// Load loads the system configuration from the specified path.
// If the file does not exist, returns DefaultConfig().
func (l *ConfigLoader) Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	//nolint:gosec // G304: path is user-provided config file, validated to exist above
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read system config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Gates = config.GateConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}

	cfg.Gates.ApplyDefaults()
	if err := cfg.Gates.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Reasoner.MaxRetries < 0 {
		return nil, fmt.Errorf("%s: reasoner.max_retries must be non-negative", path)
	}

	return cfg, nil
}
