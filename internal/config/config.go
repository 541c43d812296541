package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session count bounds accepted by the backend.
const (
	MinSessionCount = 1
	MaxSessionCount = 10000
)

// MaxClaimLogLimit is the most claim log entries the panel ever requests.
const MaxClaimLogLimit = 50

type Config struct {
	API     APIConfig       `yaml:"api"`
	Poll    PollConfig      `yaml:"poll"`
	Session SessionDefaults `yaml:"session"`
	Log     LogConfig       `yaml:"log"`
	Metrics MetricsConfig   `yaml:"metrics"`
}

type APIConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	// Stream enables the /ws stats push alongside polling.
	Stream bool `yaml:"stream"`
}

type PollConfig struct {
	Interval          time.Duration `yaml:"interval"`
	ClaimLogLimit     int           `yaml:"claim_log_limit"`
	CatalogAttempts   uint          `yaml:"catalog_attempts"`
	CatalogRetryDelay time.Duration `yaml:"catalog_retry_delay"`
	RefreshPerSecond  int           `yaml:"refresh_per_second"`
}

// SessionDefaults are the launch parameters used for every new session.
// Only the count is editable from the panel.
type SessionDefaults struct {
	Count               int     `yaml:"count"`
	AutoWithdrawal      bool    `yaml:"auto_withdrawal"`
	WithdrawalThreshold float64 `yaml:"withdrawal_threshold"`
	WithdrawalAddress   string  `yaml:"withdrawal_address"`
	ProxyEnabled        bool    `yaml:"proxy_enabled"`
	CaptchaSolving      bool    `yaml:"captcha_solving"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file or env overrides exist.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:     "http://127.0.0.1:8001/api",
			Timeout: 10 * time.Second,
		},
		Poll: PollConfig{
			Interval:          5 * time.Second,
			ClaimLogLimit:     MaxClaimLogLimit,
			CatalogAttempts:   3,
			CatalogRetryDelay: time.Second,
			RefreshPerSecond:  1,
		},
		Session: SessionDefaults{
			Count:               10,
			AutoWithdrawal:      true,
			WithdrawalThreshold: 0.0000093,
			WithdrawalAddress:   "bc1qzh55yrw9z4ve9zxy04xuw9mq838g5c06tqvrxk",
			ProxyEnabled:        true,
			CaptchaSolving:      true,
		},
		Log: LogConfig{
			Level: "info",
			File:  "claim-panel.log",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// CLAIM_PANEL_* environment variables (a .env file is honoured if present).
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.API.URL = getEnv("CLAIM_PANEL_API_URL", c.API.URL)
	c.API.Token = getEnv("CLAIM_PANEL_API_TOKEN", c.API.Token)
	c.API.Timeout = getEnvAsDuration("CLAIM_PANEL_API_TIMEOUT", c.API.Timeout)
	c.API.Stream = getEnvAsBool("CLAIM_PANEL_STREAM", c.API.Stream)

	c.Poll.Interval = getEnvAsDuration("CLAIM_PANEL_POLL_INTERVAL", c.Poll.Interval)
	c.Poll.ClaimLogLimit = getEnvAsInt("CLAIM_PANEL_CLAIM_LOG_LIMIT", c.Poll.ClaimLogLimit)

	c.Session.Count = getEnvAsInt("CLAIM_PANEL_SESSION_COUNT", c.Session.Count)
	c.Session.WithdrawalAddress = getEnv("CLAIM_PANEL_WITHDRAWAL_ADDRESS", c.Session.WithdrawalAddress)
	c.Session.WithdrawalThreshold = getEnvAsFloat("CLAIM_PANEL_WITHDRAWAL_THRESHOLD", c.Session.WithdrawalThreshold)

	c.Log.Level = getEnv("CLAIM_PANEL_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("CLAIM_PANEL_LOG_FILE", c.Log.File)
	c.Metrics.Addr = getEnv("CLAIM_PANEL_METRICS_ADDR", c.Metrics.Addr)
}

// Validate checks that the configuration can drive the panel.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return errors.New("api.url is required")
	}
	if !strings.HasPrefix(c.API.URL, "http://") && !strings.HasPrefix(c.API.URL, "https://") {
		return fmt.Errorf("api.url must be an http(s) URL, got %q", c.API.URL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.Poll.Interval <= 0 {
		return errors.New("poll.interval must be positive")
	}
	if c.Poll.ClaimLogLimit < 1 || c.Poll.ClaimLogLimit > MaxClaimLogLimit {
		return fmt.Errorf("poll.claim_log_limit must be between 1 and %d", MaxClaimLogLimit)
	}
	if c.Poll.CatalogAttempts == 0 {
		return errors.New("poll.catalog_attempts must be positive")
	}
	if c.Poll.RefreshPerSecond <= 0 {
		return errors.New("poll.refresh_per_second must be positive")
	}
	if c.Session.Count < MinSessionCount || c.Session.Count > MaxSessionCount {
		return fmt.Errorf("session.count must be between %d and %d", MinSessionCount, MaxSessionCount)
	}
	if c.Session.WithdrawalThreshold < 0 {
		return errors.New("session.withdrawal_threshold must not be negative")
	}
	if c.Session.AutoWithdrawal && c.Session.WithdrawalAddress == "" {
		return errors.New("session.withdrawal_address is required when auto_withdrawal is on")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
