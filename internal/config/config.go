package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// GatewayConfig holds settings for the remote data gateway connection.
type GatewayConfig struct {
	// BaseURL is the root URL of the gateway API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds every single gateway request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns the per-request timeout as a duration.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSec) * time.Second
}

// NotifyConfig holds settings for the notification delivery service.
type NotifyConfig struct {
	// PollIntervalSec is how often the notification list is refetched
	// while a session is active.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// OpenDebounceSec is the minimum age of the in-memory list before
	// opening the notification panel triggers a refetch.
	OpenDebounceSec int `mapstructure:"open_debounce_sec" yaml:"open_debounce_sec"`

	// MaxStored bounds how many notifications are persisted locally.
	MaxStored int `mapstructure:"max_stored" yaml:"max_stored"`
}

// PollInterval returns the poll interval as a duration.
func (n NotifyConfig) PollInterval() time.Duration {
	return time.Duration(n.PollIntervalSec) * time.Second
}

// OpenDebounce returns the open-debounce gate as a duration.
func (n NotifyConfig) OpenDebounce() time.Duration {
	return time.Duration(n.OpenDebounceSec) * time.Second
}

// CacheConfig holds per-category response cache bounds.
type CacheConfig struct {
	APITTLSec       int `mapstructure:"api_ttl_sec" yaml:"api_ttl_sec"`
	APIMaxEntries   int `mapstructure:"api_max_entries" yaml:"api_max_entries"`
	ImageTTLSec     int `mapstructure:"image_ttl_sec" yaml:"image_ttl_sec"`
	ImageMaxEntries int `mapstructure:"image_max_entries" yaml:"image_max_entries"`
}

// StoreConfig holds settings for the local persistent store.
type StoreConfig struct {
	// Path is the SQLite database file location.
	Path string `mapstructure:"path" yaml:"path"`
}

// Config is the top-level runtime configuration.
type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway" yaml:"gateway"`
	Notify  NotifyConfig  `mapstructure:"notify" yaml:"notify"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/qytetaret/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "qytetaret", "config.yaml")
}

// defaultStorePath returns the default SQLite database location.
func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "synckit.db")
	}
	return filepath.Join(home, ".local", "share", "qytetaret", "synckit.db")
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			BaseURL:    "http://localhost:8080/api",
			TimeoutSec: 30,
		},
		Notify: NotifyConfig{
			PollIntervalSec: 30,
			OpenDebounceSec: 10,
			MaxStored:       50,
		},
		Cache: CacheConfig{
			APITTLSec:       300,
			APIMaxEntries:   50,
			ImageTTLSec:     86400,
			ImageMaxEntries: 100,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
	}
}

// Load reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("gateway.base_url", "http://localhost:8080/api")
	v.SetDefault("gateway.timeout_sec", 30)
	v.SetDefault("notify.poll_interval_sec", 30)
	v.SetDefault("notify.open_debounce_sec", 10)
	v.SetDefault("notify.max_stored", 50)
	v.SetDefault("cache.api_ttl_sec", 300)
	v.SetDefault("cache.api_max_entries", 50)
	v.SetDefault("cache.image_ttl_sec", 86400)
	v.SetDefault("cache.image_max_entries", 100)
	v.SetDefault("store.path", defaultStorePath())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return Default(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the given configuration to a YAML file at path, creating
// parent directories if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("gateway", cfg.Gateway)
	v.Set("notify", cfg.Notify)
	v.Set("cache", cfg.Cache)
	v.Set("store", cfg.Store)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
