// Package config handles the XDG configuration directory, config.yaml and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "tasker"

	// ConfigFile is the settings filename.
	ConfigFile = "config.yaml"

	// CredentialsFile is the stored token pair filename.
	CredentialsFile = "credentials.json"

	// EnvPrefix prefixes environment overrides, e.g. TASKER_API_BASE_URL.
	EnvPrefix = "TASKER"

	// DefaultBaseURL is the API root used when nothing is configured.
	DefaultBaseURL = "http://localhost:8000/api"

	// DefaultTimeout bounds each HTTP exchange.
	DefaultTimeout = 30 * time.Second

	// DefaultRedisPrefix namespaces the Redis credential keys.
	DefaultRedisPrefix = "tasker:"
)

// Credential store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	APIBaseURL    string
	Store         string
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
	Timeout       time.Duration
}

// fileConfig is the on-disk shape of config.yaml.
type fileConfig struct {
	APIBaseURL    string `yaml:"api_base_url,omitempty"`
	Store         string `yaml:"store,omitempty"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisPrefix   string `yaml:"redis_prefix,omitempty"`
	Timeout       string `yaml:"timeout,omitempty"`
}

// New loads configuration from the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/tasker or $HOME/.config/tasker.
// A missing config.yaml is not an error. Environment variables with the
// TASKER_ prefix override file values.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, ConfigFile))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("api_base_url", DefaultBaseURL)
	v.SetDefault("store", StoreFile)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_prefix", DefaultRedisPrefix)
	v.SetDefault("timeout", DefaultTimeout.String())

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}

	cfg := &Config{
		Dir:           dir,
		APIBaseURL:    v.GetString("api_base_url"),
		Store:         v.GetString("store"),
		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisPrefix:   v.GetString("redis_prefix"),
		Timeout:       v.GetDuration("timeout"),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if err := ValidateStore(cfg.Store); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateStore checks a credential store name.
func ValidateStore(name string) error {
	switch name {
	case StoreFile, StoreRedis, StoreMemory:
		return nil
	}
	return fmt.Errorf("invalid store: %s (want file, redis or memory)", name)
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the path to config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// CredentialsPath returns the path to the stored token pair.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.Dir, CredentialsFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// Save writes the settings to config.yaml with mode 0600.
func (c *Config) Save() error {
	if err := c.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	fc := fileConfig{
		APIBaseURL:    c.APIBaseURL,
		Store:         c.Store,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisPrefix:   c.RedisPrefix,
	}
	if c.Timeout > 0 {
		fc.Timeout = c.Timeout.String()
	}

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return err
	}
	return os.WriteFile(c.ConfigPath(), data, 0600)
}

// Logger returns a text logger writing to w at debug level when Debug is
// set, and a logger that discards everything otherwise.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	if !c.Debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
