// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	Detonate DetonateConfig `mapstructure:"detonate"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Limits   LimitsConfig   `mapstructure:"limits"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token   string `mapstructure:"token"`
	OwnerID int64  `mapstructure:"owner_id"`
	Prefix  string `mapstructure:"prefix"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
// An empty host disables persistence; the bot then runs without a leaderboard.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DetonateConfig holds detonation vote configuration.
type DetonateConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	Approval int           `mapstructure:"approval"`
	Emoji    string        `mapstructure:"emoji"`
}

// ArchiveConfig holds transcript archive (hastebin-style) configuration.
type ArchiveConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LimitsConfig holds user-facing list and bomb size limits.
type LimitsConfig struct {
	MaxModules       int `mapstructure:"max_modules"`
	MaxUnclaimedList int `mapstructure:"max_unclaimed_list"`
	MaxFoundList     int `mapstructure:"max_found_list"`
}

// Enabled reports whether a database is configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// Environment variables use underscore separator and uppercase
	// e.g., BOT_TOKEN, DETONATE_APPROVAL, DATABASE_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Detonate.Approval < 1 {
		return nil, fmt.Errorf("detonate.approval must be at least 1, got %d", cfg.Detonate.Approval)
	}
	if cfg.Limits.MaxModules < 1 {
		return nil, fmt.Errorf("limits.max_modules must be at least 1, got %d", cfg.Limits.MaxModules)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Bot defaults. Empty defaults make env overrides visible to viper.
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.owner_id", 0)
	v.SetDefault("bot.prefix", "!")

	// Database defaults (host intentionally left empty - persistence is opt-in)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "ktane")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "ktane")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Detonation vote defaults
	v.SetDefault("detonate.timeout", "60s")
	v.SetDefault("detonate.approval", 3)
	v.SetDefault("detonate.emoji", "\U0001F4A5")

	// Transcript archive defaults
	v.SetDefault("archive.url", "https://hastebin.com")
	v.SetDefault("archive.timeout", "5s")

	// List and bomb size limits
	v.SetDefault("limits.max_modules", 101)
	v.SetDefault("limits.max_unclaimed_list", 10)
	v.SetDefault("limits.max_found_list", 15)
}

// IsOwner checks if a user ID is the bot owner.
func (c *Config) IsOwner(userID int64) bool {
	return c.Bot.OwnerID != 0 && c.Bot.OwnerID == userID
}
