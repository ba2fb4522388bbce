// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultStoreDriver     = "memory"
	DefaultAuthMode        = "none"
	DefaultRateBurst       = 20
)

// Environment variable names.
const (
	EnvServerPort      = "APP_SERVER_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvOTLPEndpoint    = "APP_OTLP_ENDPOINT"
	EnvStoreDriver     = "APP_STORE_DRIVER"
	EnvStoreDSN        = "APP_STORE_DSN"
	EnvAuthMode        = "APP_AUTH_MODE"
	EnvBasicAuthUsers  = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys         = "APP_API_KEYS"   //nolint:gosec // env var name, not a credential
	EnvJWTSecret       = "APP_JWT_SECRET" //nolint:gosec // env var name, not a credential
	EnvJWTIssuer       = "APP_JWT_ISSUER"
	EnvRateLimit       = "APP_RATE_LIMIT"
	EnvRateBurst       = "APP_RATE_BURST"
	EnvCORSOrigins     = "APP_CORS_ORIGINS"
)

// Config holds the application configuration.
type Config struct {
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	OTLPEndpoint    string // empty disables trace export

	// Store backend: memory, sqlite or postgres. DSN is ignored for memory.
	StoreDriver string
	StoreDSN    string

	// Authentication mode: none, basic, apikey, jwt, multi.
	AuthMode       string
	BasicAuthUsers string // "user1:bcrypt_hash,user2:bcrypt_hash"
	APIKeys        string // "key1:client1,key2:client2"
	JWTSecret      string
	JWTIssuer      string

	// Requests per second across all callers; 0 disables limiting.
	RateLimit float64
	RateBurst int

	CORSOrigins []string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidStoreDriver     = errors.New("store driver must be one of: memory, sqlite, postgres")
	ErrMissingStoreDSN        = errors.New("store DSN must be set for the postgres driver")
	ErrInvalidAuthMode        = errors.New("auth mode must be one of: none, basic, apikey, jwt, multi")
	ErrInvalidBasicAuthConfig = errors.New("basic auth users must be set when auth mode is basic")
	ErrInvalidAPIKeyConfig    = errors.New("API keys must be set when auth mode is apikey")
	ErrInvalidJWTConfig       = errors.New("JWT secret must be set when auth mode is jwt")
	ErrInvalidMultiAuthConfig = errors.New("at least one auth config must be provided when auth mode is multi")
	ErrInvalidRateLimit       = errors.New("rate limit must not be negative")
	ErrInvalidRateBurst       = errors.New("rate burst must be positive when rate limiting is enabled")
)

var (
	validLogLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validStoreDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true}
	validAuthModes    = map[string]bool{"none": true, "basic": true, "apikey": true, "jwt": true, "multi": true}
)

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		ServerPort:      DefaultServerPort,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  DefaultMetricsEnabled,
		StoreDriver:     DefaultStoreDriver,
		AuthMode:        DefaultAuthMode,
		RateBurst:       DefaultRateBurst,
		CORSOrigins:     []string{"*"},
	}
}

// Load reads configuration from environment variables over the defaults and
// validates the result.
func Load() (*Config, error) {
	cfg := Default()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	var err error

	if c.ServerPort, err = envInt(EnvServerPort, c.ServerPort); err != nil {
		return err
	}
	if c.ShutdownTimeout, err = envDuration(EnvShutdownTimeout, c.ShutdownTimeout); err != nil {
		return err
	}
	if c.MetricsEnabled, err = envBool(EnvMetricsEnabled, c.MetricsEnabled); err != nil {
		return err
	}
	if c.RateLimit, err = envFloat(EnvRateLimit, c.RateLimit); err != nil {
		return err
	}
	if c.RateBurst, err = envInt(EnvRateBurst, c.RateBurst); err != nil {
		return err
	}

	c.LogLevel = envString(EnvLogLevel, c.LogLevel)
	c.OTLPEndpoint = envString(EnvOTLPEndpoint, c.OTLPEndpoint)
	c.StoreDriver = envString(EnvStoreDriver, c.StoreDriver)
	c.StoreDSN = envString(EnvStoreDSN, c.StoreDSN)
	c.AuthMode = envString(EnvAuthMode, c.AuthMode)
	c.BasicAuthUsers = envString(EnvBasicAuthUsers, c.BasicAuthUsers)
	c.APIKeys = envString(EnvAPIKeys, c.APIKeys)
	c.JWTSecret = envString(EnvJWTSecret, c.JWTSecret)
	c.JWTIssuer = envString(EnvJWTIssuer, c.JWTIssuer)

	if val := os.Getenv(EnvCORSOrigins); val != "" {
		c.CORSOrigins = splitList(val)
	}

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}
	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return ErrInvalidRateBurst
	}

	return nil
}

func (c *Config) validateStore() error {
	if !validStoreDrivers[c.StoreDriver] {
		return ErrInvalidStoreDriver
	}
	if c.StoreDriver == "postgres" && c.StoreDSN == "" {
		return ErrMissingStoreDSN
	}
	return nil
}

func (c *Config) validateAuth() error {
	if !validAuthModes[c.AuthMode] {
		return ErrInvalidAuthMode
	}

	switch c.AuthMode {
	case "basic":
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case "apikey":
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case "jwt":
		if c.JWTSecret == "" {
			return ErrInvalidJWTConfig
		}
	case "multi":
		if c.BasicAuthUsers == "" && c.APIKeys == "" && c.JWTSecret == "" {
			return ErrInvalidMultiAuthConfig
		}
	}

	return nil
}

// SQLiteDSN returns the DSN for the sqlite driver, defaulting to an
// in-memory database.
func (c *Config) SQLiteDSN() string {
	if c.StoreDSN == "" {
		return ":memory:"
	}
	return c.StoreDSN
}

// Address returns the server listen address.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

func envString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
