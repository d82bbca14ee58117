// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recs/internal/observability"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	APIURL             string  `mapstructure:"API_URL"`
	APIToken           string  `mapstructure:"API_TOKEN"`
	ViewerUsername     string  `mapstructure:"VIEWER_USERNAME"`
	HTTPTimeoutSeconds int     `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	RateLimitRPS       float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int     `mapstructure:"RATE_LIMIT_BURST"`
	RedisURL           string  `mapstructure:"REDIS_URL"`
	CacheTTLSeconds    int     `mapstructure:"CACHE_TTL_SECONDS"`
	SnapshotPath       string  `mapstructure:"SNAPSHOT_PATH"`
	LogLevel           string  `mapstructure:"LOG_LEVEL"`
	Env                string  `mapstructure:"APP_ENV"`
	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler     float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(dir, "recs"))
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		observability.GlobalLogger.Debug("loaded profile-specific configuration", "file", "config."+env+".yml")
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("API_URL", "http://localhost:8000")
	viper.SetDefault("API_TOKEN", "")
	viper.SetDefault("VIEWER_USERNAME", "")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 15)
	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 5)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("CACHE_TTL_SECONDS", 120)
	viper.SetDefault("SNAPSHOT_PATH", defaultSnapshotPath())
	viper.SetDefault("LOG_LEVEL", "warn")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func defaultSnapshotPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "recs", "snapshot.db")
}

func (c *Config) normalize() {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	c.ViewerUsername = strings.TrimSpace(c.ViewerUsername)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
}

// Validate ensures that required configuration values are present and sane.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("API_URL is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API_URL must be an http(s) URL, got %q", c.APIURL)
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return errors.New("HTTP_TIMEOUT_SECONDS must be positive")
	}
	if c.RateLimitRPS < 0 {
		return errors.New("RATE_LIMIT_RPS must not be negative")
	}
	if c.CacheTTLSeconds < 0 {
		return errors.New("CACHE_TTL_SECONDS must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel)
	}
	if c.TracingEnabled {
		if c.TracingExporter != "stdout" && c.TracingExporter != "otlp" {
			return fmt.Errorf("TRACING_EXPORTER %q is not stdout or otlp", c.TracingExporter)
		}
		if c.TracingSampler < 0 || c.TracingSampler > 1 {
			return errors.New("TRACING_SAMPLER_RATIO must be between 0 and 1")
		}
	}

	isProduction := c.Env == "production" || c.Env == "prod"
	if isProduction && u.Scheme != "https" {
		return errors.New("API_URL must use https in production")
	}

	return nil
}

// HTTPTimeout returns HTTPTimeoutSeconds as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// TracingConfig maps the tracing keys onto observability.TracingConfig.
func (c *Config) TracingConfig(version string) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:    "recs",
		ServiceVersion: version,
		Environment:    c.Env,
		Enabled:        c.TracingEnabled,
		Exporter:       c.TracingExporter,
		OTLPEndpoint:   c.OTLPEndpoint,
		SamplerRatio:   c.TracingSampler,
	}
}
