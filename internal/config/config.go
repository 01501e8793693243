// Package config provides YAML-based configuration loading for stratum.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level stratum configuration, loaded from stratum.yaml.
type Config struct {
	Project  string         `yaml:"project"`
	LogMode  string         `yaml:"log_mode"`
	Remote   RemoteConfig   `yaml:"remote"`
	Cache    CacheConfig    `yaml:"cache"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Seed     string         `yaml:"seed"`
	Notify   NotifyConfig   `yaml:"notify"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// RemoteConfig points the editing client at the persistence API.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig selects the durable store behind the reference data cache.
type CacheConfig struct {
	Backend         string        `yaml:"backend"` // badger, redis, memory
	Path            string        `yaml:"path"`
	RedisAddr       string        `yaml:"redis_addr"`
	TTL             time.Duration `yaml:"ttl"`
	RefreshSchedule string        `yaml:"refresh_schedule"`
	Catalogs        []string      `yaml:"catalogs"`
}

// DatabaseConfig holds connection settings for the server's database.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite, mysql
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ServerConfig holds the HTTP listener settings for `stratum serve`.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// NotifyConfig enables optional chat sinks for failure notices.
type NotifyConfig struct {
	Slack   ChatConfig `yaml:"slack"`
	Discord ChatConfig `yaml:"discord"`
}

// ChatConfig is a bot token plus the channel notices are posted to.
type ChatConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether both token and channel are set.
func (c ChatConfig) Enabled() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

// DefaultsConfig holds editor defaults.
type DefaultsConfig struct {
	SegmentWidthMM float64 `yaml:"segment_width_mm"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.LogMode == "" {
		c.LogMode = "dev"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = fmt.Sprintf("http://127.0.0.1:%d", c.Server.Port)
	}
	c.Remote.BaseURL = strings.TrimRight(c.Remote.BaseURL, "/")
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = 15 * time.Second
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "badger"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = ".stratum/cache"
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "127.0.0.1:6379"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 24 * time.Hour
	}
	if c.Cache.RefreshSchedule == "" {
		c.Cache.RefreshSchedule = "0 3 * * *"
	}
	if len(c.Cache.Catalogs) == 0 {
		c.Cache.Catalogs = []string{"materials", "frames", "glazing"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "stratum.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "stratum"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Defaults.SegmentWidthMM == 0 {
		c.Defaults.SegmentWidthMM = 50
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Project == "" {
		errs = append(errs, "project is required")
	}
	switch c.Cache.Backend {
	case "badger", "redis", "memory":
	default:
		errs = append(errs, fmt.Sprintf("cache.backend %q must be badger, redis or memory", c.Cache.Backend))
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}
	if c.Remote.Timeout < 0 {
		errs = append(errs, "remote.timeout must not be negative")
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl must not be negative")
	}
	if c.Defaults.SegmentWidthMM < 0 {
		errs = append(errs, "defaults.segment_width_mm must be positive")
	}
	for i, name := range c.Cache.Catalogs {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Sprintf("cache.catalogs[%d] is empty", i))
		}
	}
	if s := c.Notify.Slack; (s.BotToken == "") != (s.ChannelID == "") {
		errs = append(errs, "notify.slack needs both bot_token and channel_id")
	}
	if d := c.Notify.Discord; (d.BotToken == "") != (d.ChannelID == "") {
		errs = append(errs, "notify.discord needs both bot_token and channel_id")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
