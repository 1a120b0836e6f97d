package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.storechat/config.toml.
type Config struct {
	DefaultInstance string          `toml:"default_instance"`
	Chat            ChatConfig      `toml:"chat"`
	Contacts        []ContactConfig `toml:"contacts"`
	HTTP            HTTPConfig      `toml:"http"`
	Redis           RedisConfig     `toml:"redis"`
	Archive         ArchiveConfig   `toml:"archive"`
	Log             LogConfig       `toml:"log"`
}

// ChatConfig tunes the floating windows and the simulated counterparty.
type ChatConfig struct {
	MaxWindows    int      `toml:"max_windows"`
	ReplyMinDelay Duration `toml:"reply_min_delay"`
	ReplyMaxDelay Duration `toml:"reply_max_delay"`
	Replies       []string `toml:"replies"`
}

// ContactConfig overrides the built-in contact seed.
type ContactConfig struct {
	ID          string     `toml:"id"`
	Name        string     `toml:"name"`
	Avatar      string     `toml:"avatar"`
	Online      bool       `toml:"online"`
	LastSeen    *time.Time `toml:"last_seen,omitempty"`
	UnreadCount int        `toml:"unread_count"`
}

// HTTPConfig configures the browser-facing gateway. Empty Addr disables it.
// AllowedOrigins lists the browser origins that may open the event socket in
// addition to the gateway's own host; "*" allows any.
type HTTPConfig struct {
	Addr           string   `toml:"addr"`
	SendRateLimit  float64  `toml:"send_rate_limit"`
	SendBurst      int      `toml:"send_burst"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// RedisConfig configures the event relay. Empty Addr disables it.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
}

// ArchiveConfig toggles the SQLite transcript archive.
type ArchiveConfig struct {
	Enabled bool `toml:"enabled"`
}

// LogConfig sets the minimum log level (debug, info, warn, error).
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as a Go duration string ("1500ms").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Chat.MaxWindows <= 0 {
		c.Chat.MaxWindows = 3
	}
	if c.Chat.ReplyMinDelay.Duration <= 0 {
		c.Chat.ReplyMinDelay.Duration = time.Second
	}
	if c.Chat.ReplyMaxDelay.Duration <= 0 {
		c.Chat.ReplyMaxDelay.Duration = 3 * time.Second
	}
	if c.HTTP.SendRateLimit <= 0 {
		c.HTTP.SendRateLimit = 5
	}
	if c.HTTP.SendBurst <= 0 {
		c.HTTP.SendBurst = 10
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "storechat:events"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Load reads config from the given path. Returns nil config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault reads config from path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv overrides addresses and log level from STORECHAT_* variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STORECHAT_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("STORECHAT_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("STORECHAT_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("STORECHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
