// Package config reads and writes the payplan TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Remote kinds.
const (
	RemoteNone  = "none"
	RemoteHTTP  = "http"
	RemoteRedis = "redis"
)

// Config holds all payplan configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Remote  RemoteConfig  `toml:"remote"`
	Sync    SyncConfig    `toml:"sync"`
	Log     LogConfig     `toml:"log"`
}

// StorageConfig selects the local cache.
type StorageConfig struct {
	Mode string `toml:"mode"`
	Path string `toml:"path,omitempty"`
}

// RemoteConfig selects where snapshots are shared between devices. Tokens
// and passwords live in the keyring, not here.
type RemoteConfig struct {
	Kind      string `toml:"kind"`
	URL       string `toml:"url,omitempty"`
	RedisAddr string `toml:"redis_addr,omitempty"`
	RedisDB   int    `toml:"redis_db,omitempty"`
	KeyPrefix string `toml:"key_prefix,omitempty"`
}

// SyncConfig tunes the saver and pull loop.
type SyncConfig struct {
	DebounceMS   int `toml:"debounce_ms"`
	PollSeconds  int `toml:"poll_seconds"`
	StaleSeconds int `toml:"stale_seconds"`
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{Mode: "plain"},
		Remote:  RemoteConfig{Kind: RemoteNone},
		Sync: SyncConfig{
			DebounceMS:   400,
			PollSeconds:  120,
			StaleSeconds: 30,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "payplan")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "payplan")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Save writes the config to disk.
func Save(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Storage.Mode) {
	case "", "plain", "secure":
	default:
		errs = append(errs, fmt.Errorf("storage.mode %q: want plain or secure", c.Storage.Mode))
	}
	switch c.Remote.Kind {
	case "", RemoteNone:
	case RemoteHTTP:
		if RemoteURL(c) == "" {
			errs = append(errs, errors.New("remote.url is required for the http remote"))
		}
	case RemoteRedis:
		if RedisAddr(c) == "" {
			errs = append(errs, errors.New("remote.redis_addr is required for the redis remote"))
		}
	default:
		errs = append(errs, fmt.Errorf("remote.kind %q: want none, http or redis", c.Remote.Kind))
	}
	if c.Sync.DebounceMS < 0 || c.Sync.PollSeconds < 0 || c.Sync.StaleSeconds < 0 {
		errs = append(errs, errors.New("sync intervals must not be negative"))
	}
	return errors.Join(errs...)
}

// Debounce returns the saver delay.
func (s SyncConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// PollInterval returns the pull loop interval.
func (s SyncConfig) PollInterval() time.Duration {
	return time.Duration(s.PollSeconds) * time.Second
}

// StaleTTL returns how old the last pull may be before startup pulls again.
func (s SyncConfig) StaleTTL() time.Duration {
	return time.Duration(s.StaleSeconds) * time.Second
}

// RemoteURL returns the document API URL from env var or config, in that order.
func RemoteURL(cfg Config) string {
	if u := strings.TrimSpace(os.Getenv("PAYPLAN_REMOTE_URL")); u != "" {
		return u
	}
	return strings.TrimSpace(cfg.Remote.URL)
}

// RedisAddr returns the Redis address from env var or config, in that order.
func RedisAddr(cfg Config) string {
	if a := strings.TrimSpace(os.Getenv("PAYPLAN_REDIS_ADDR")); a != "" {
		return a
	}
	return strings.TrimSpace(cfg.Remote.RedisAddr)
}

// Set assigns one dotted key, as used by `payplan config set`.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "storage.mode":
		c.Storage.Mode = strings.ToLower(value)
	case "storage.path":
		c.Storage.Path = value
	case "remote.kind":
		c.Remote.Kind = strings.ToLower(value)
	case "remote.url":
		c.Remote.URL = value
	case "remote.redis_addr":
		c.Remote.RedisAddr = value
	case "remote.redis_db":
		return setInt(&c.Remote.RedisDB, key, value)
	case "remote.key_prefix":
		c.Remote.KeyPrefix = value
	case "sync.debounce_ms":
		return setInt(&c.Sync.DebounceMS, key, value)
	case "sync.poll_seconds":
		return setInt(&c.Sync.PollSeconds, key, value)
	case "sync.stale_seconds":
		return setInt(&c.Sync.StaleSeconds, key, value)
	case "log.level":
		c.Log.Level = strings.ToLower(value)
	case "log.format":
		c.Log.Format = strings.ToLower(value)
	case "log.output":
		c.Log.Output = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %q is not a number", key, value)
	}
	*dst = n
	return nil
}
