// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Fallback FallbackConfig `mapstructure:"fallback"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig defines the JWT auth toggles. Users maps usernames to
// plaintext passwords for the token endpoint; real deployments should
// front this with an identity provider.
type AuthConfig struct {
	Enabled       bool              `mapstructure:"enabled"`
	SecretKey     string            `mapstructure:"secret_key"`
	ExpireMinutes int               `mapstructure:"expire_minutes"`
	Users         map[string]string `mapstructure:"users"`
}

// ScraperConfig governs fetch behavior against the VitiBrasil origin.
type ScraperConfig struct {
	BaseURL          string  `mapstructure:"base_url"`
	UserAgent        string  `mapstructure:"user_agent"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	MaxRetries       int     `mapstructure:"max_retries"`
	BackoffInitialMs int     `mapstructure:"backoff_initial_ms"`
	RequestsPS       float64 `mapstructure:"requests_per_second"`
	MinYear          int     `mapstructure:"min_year"`
	MaxYear          int     `mapstructure:"max_year"`
}

// FallbackConfig locates the CSV snapshot directory.
type FallbackConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// CacheConfig selects and tunes the result cache.
type CacheConfig struct {
	Provider   string `mapstructure:"provider"` // "memory" or "file"
	Dir        string `mapstructure:"dir"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk and environment. Environment variables
// use the VITIBRASIL_ prefix with underscores for nesting.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VITIBRASIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.expire_minutes", 30)
	v.SetDefault("scraper.base_url", "http://vitibrasil.cnpuv.embrapa.br/index.php")
	v.SetDefault("scraper.user_agent", "vitibrasil-api/1.0 (+academic data collection)")
	v.SetDefault("scraper.timeout_seconds", 10)
	v.SetDefault("scraper.max_retries", 3)
	v.SetDefault("scraper.backoff_initial_ms", 500)
	v.SetDefault("scraper.requests_per_second", 2.0)
	v.SetDefault("scraper.min_year", 1970)
	v.SetDefault("scraper.max_year", 2024)
	v.SetDefault("fallback.data_dir", "data")
	v.SetDefault("cache.provider", "memory")
	v.SetDefault("cache.dir", ".cache")
	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.Scraper.MaxRetries <= 0 {
		return fmt.Errorf("scraper.max_retries must be > 0")
	}
	if c.Scraper.MinYear > c.Scraper.MaxYear {
		return fmt.Errorf("scraper.min_year must not exceed scraper.max_year")
	}
	if c.Cache.Provider != "memory" && c.Cache.Provider != "file" {
		return fmt.Errorf("cache.provider must be memory or file, got %q", c.Cache.Provider)
	}
	if c.Cache.Provider == "file" && c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir must be set when cache.provider is file")
	}
	if c.Auth.Enabled && c.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secret_key must be set when auth is enabled")
	}
	return nil
}

// FetchTimeout converts the scraper timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// CacheTTL converts the cache TTL into a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
