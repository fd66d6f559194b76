// Package config handles loading and validating the application
// configuration from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Ebay          EbayConfig          `yaml:"ebay"`
	PriceCharting PriceChartingConfig `yaml:"pricecharting"`
	Estimator     EstimatorConfig     `yaml:"estimator"`
	Sink          SinkConfig          `yaml:"sink"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// EbayConfig defines eBay API settings for both the Browse (current
// listings) and Finding (sold comps) adapters.
type EbayConfig struct {
	AppID       string          `yaml:"app_id"`
	CertID      string          `yaml:"cert_id"`
	TokenURL    string          `yaml:"token_url"`
	BrowseURL   string          `yaml:"browse_url"`
	FindingURL  string          `yaml:"finding_url"`
	Scope       string          `yaml:"scope"`
	Marketplace string          `yaml:"marketplace"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// Configured reports whether Browse credentials are present.
func (e *EbayConfig) Configured() bool {
	return e.AppID != "" && e.CertID != ""
}

// FindingConfigured reports whether the Finding API can be used. It only
// needs the application id.
func (e *EbayConfig) FindingConfigured() bool {
	return e.AppID != ""
}

// RateLimitConfig defines outbound rate limiting settings per source.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// PriceChartingConfig defines the price-guide API settings.
type PriceChartingConfig struct {
	Token  string `yaml:"token"`
	APIURL string `yaml:"api_url"`
}

// Configured reports whether the price-guide token is present.
func (p *PriceChartingConfig) Configured() bool {
	return p.Token != ""
}

// EstimatorConfig defines orchestration settings.
type EstimatorConfig struct {
	CallTimeout  time.Duration `yaml:"call_timeout"`
	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// SinkConfig defines the diagnostic note sink.
type SinkConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}

	if cfg.Ebay.Marketplace == "" {
		cfg.Ebay.Marketplace = "EBAY_US"
	}
	if cfg.Ebay.RateLimit.PerSecond == 0 {
		cfg.Ebay.RateLimit.PerSecond = 2
	}
	if cfg.Ebay.RateLimit.Burst == 0 {
		cfg.Ebay.RateLimit.Burst = 5
	}
	if cfg.Ebay.RateLimit.DailyLimit == 0 {
		cfg.Ebay.RateLimit.DailyLimit = 4500
	}

	if cfg.Estimator.CallTimeout == 0 {
		cfg.Estimator.CallTimeout = 12 * time.Second
	}
	if cfg.Estimator.CacheTTL == 0 {
		cfg.Estimator.CacheTTL = 10 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	// Total misconfiguration is the one fatal condition: without a single
	// usable source every estimate would be an empty-but-200 payload.
	if !cfg.Ebay.Configured() && !cfg.Ebay.FindingConfigured() && !cfg.PriceCharting.Configured() {
		errs = append(errs, errors.New(
			"no usable source configured: set ebay.app_id/cert_id or pricecharting.token",
		))
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", cfg.Server.Port))
	}

	if cfg.Sink.Enabled && cfg.Sink.URL == "" {
		errs = append(errs, errors.New("sink.enabled requires sink.url"))
	}

	if cfg.Estimator.CallTimeout < 0 {
		errs = append(errs, errors.New("estimator.call_timeout must not be negative"))
	}

	return errors.Join(errs...)
}
