// Package config loads CLI settings from the config file, the environment and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/harrison/configcat-cli/internal/filelock"
)

// Environment variables that override the config file.
const (
	EnvAPIHost  = "CONFIGCAT_API_HOST"
	EnvUsername = "CONFIGCAT_API_USER"
	EnvPassword = "CONFIGCAT_API_PASS"
	EnvConfigID = "CONFIGCAT_CONFIG_ID"
)

// DefaultAPIHost is used when no host is configured.
const DefaultAPIHost = "api.configcat.com"

// ErrNoCredentials is returned by ValidateAuth when no API credentials are set.
var ErrNoCredentials = errors.New("API credentials are not configured: run 'configcat setup' or set " +
	EnvUsername + " and " + EnvPassword)

// AuthConfig holds the management API credentials.
type AuthConfig struct {
	Host     string `yaml:"host"`
	Username string `yaml:"user"`
	Password string `yaml:"pass"`
}

// ScanConfig holds defaults for the scan command.
type ScanConfig struct {
	// ConfigID is used when --config-id is not given
	ConfigID string `yaml:"config_id"`

	// LineCount is the number of context lines around a reference
	LineCount int `yaml:"line_count"`

	// Workers bounds the scanning pool (0 = one per CPU)
	Workers int `yaml:"workers"`

	// AliasDiscovery enables the alias pre-pass
	AliasDiscovery bool `yaml:"alias_discovery"`

	// EngineCacheSize bounds the per-directory ignore rule cache
	EngineCacheSize int `yaml:"engine_cache_size"`

	// ExcludeDirs are directory names never descended into
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// Config represents configcat CLI configuration options
type Config struct {
	Auth AuthConfig `yaml:"auth"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Timeout bounds a single API request
	Timeout time.Duration `yaml:"timeout"`

	Scan ScanConfig `yaml:"scan"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Auth:     AuthConfig{Host: DefaultAPIHost},
		LogLevel: "warn",
		Timeout:  30 * time.Second,
		Scan: ScanConfig{
			LineCount:       4,
			AliasDiscovery:  true,
			EngineCacheSize: 512,
			ExcludeDirs:     []string{".git"},
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/configcat/cli.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "configcat", "cli.yaml")
}

// yamlConfig mirrors Config with the duration as text and the alias switch as a
// pointer, so that absent keys keep their defaults.
type yamlConfig struct {
	Auth     AuthConfig `yaml:"auth"`
	LogLevel string     `yaml:"log_level"`
	Timeout  string     `yaml:"timeout"`
	Scan     struct {
		ConfigID        string   `yaml:"config_id"`
		LineCount       int      `yaml:"line_count"`
		Workers         int      `yaml:"workers"`
		AliasDiscovery  *bool    `yaml:"alias_discovery"`
		EngineCacheSize int      `yaml:"engine_cache_size"`
		ExcludeDirs     []string `yaml:"exclude_dirs"`
	} `yaml:"scan"`
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if yc.Auth.Host != "" {
		cfg.Auth.Host = yc.Auth.Host
	}
	cfg.Auth.Username = yc.Auth.Username
	cfg.Auth.Password = yc.Auth.Password
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.Timeout != "" {
		timeout, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yc.Timeout, err)
		}
		cfg.Timeout = timeout
	}

	cfg.Scan.ConfigID = yc.Scan.ConfigID
	if yc.Scan.LineCount != 0 {
		cfg.Scan.LineCount = yc.Scan.LineCount
	}
	cfg.Scan.Workers = yc.Scan.Workers
	if yc.Scan.AliasDiscovery != nil {
		cfg.Scan.AliasDiscovery = *yc.Scan.AliasDiscovery
	}
	if yc.Scan.EngineCacheSize != 0 {
		cfg.Scan.EngineCacheSize = yc.Scan.EngineCacheSize
	}
	if yc.Scan.ExcludeDirs != nil {
		cfg.Scan.ExcludeDirs = yc.Scan.ExcludeDirs
	}

	return cfg, nil
}

// Load reads the config file at path (DefaultPath when empty), loads a .env file
// from the working directory if there is one, and applies the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	_ = godotenv.Load()
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides settings with non-empty environment variables read
// through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.Auth.Host = firstNonEmpty(strings.TrimSpace(getenv(EnvAPIHost)), c.Auth.Host)
	c.Auth.Username = firstNonEmpty(strings.TrimSpace(getenv(EnvUsername)), c.Auth.Username)
	c.Auth.Password = firstNonEmpty(getenv(EnvPassword), c.Auth.Password)
	c.Scan.ConfigID = firstNonEmpty(strings.TrimSpace(getenv(EnvConfigID)), c.Scan.ConfigID)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(logLevel *string, configID *string, lineCount *int, workers *int, aliasDiscovery *bool) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if configID != nil {
		c.Scan.ConfigID = *configID
	}
	if lineCount != nil {
		c.Scan.LineCount = *lineCount
	}
	if workers != nil {
		c.Scan.Workers = *workers
	}
	if aliasDiscovery != nil {
		c.Scan.AliasDiscovery = *aliasDiscovery
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must be >= 0, got %d", c.Scan.Workers)
	}
	if c.Scan.EngineCacheSize <= 0 {
		return fmt.Errorf("scan.engine_cache_size must be > 0, got %d", c.Scan.EngineCacheSize)
	}
	if strings.TrimSpace(c.Auth.Host) == "" {
		return fmt.Errorf("auth.host cannot be empty")
	}
	return nil
}

// ValidateAuth checks that API credentials are present.
func (c *Config) ValidateAuth() error {
	if c.Auth.Username == "" || c.Auth.Password == "" {
		return ErrNoCredentials
	}
	return nil
}

// Save writes c to path with owner-only permissions, holding a file lock so
// that concurrent setups cannot interleave.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}

	yc := yamlConfig{Auth: c.Auth, LogLevel: c.LogLevel, Timeout: c.Timeout.String()}
	yc.Scan.ConfigID = c.Scan.ConfigID
	yc.Scan.LineCount = c.Scan.LineCount
	yc.Scan.Workers = c.Scan.Workers
	yc.Scan.AliasDiscovery = &c.Scan.AliasDiscovery
	yc.Scan.EngineCacheSize = c.Scan.EngineCacheSize
	yc.Scan.ExcludeDirs = c.Scan.ExcludeDirs

	data, err := yaml.Marshal(&yc)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := filelock.LockAndWrite(path, data, 0600); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
