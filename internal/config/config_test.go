package config

import (
	"errors"
	"testing"
	"time"
)

var allEnvVars = []string{
	EnvServerPort, EnvLogLevel, EnvShutdownTimeout, EnvMetricsEnabled, EnvOTLPEndpoint,
	EnvStoreDriver, EnvStoreDSN, EnvAuthMode, EnvBasicAuthUsers, EnvAPIKeys,
	EnvJWTSecret, EnvJWTIssuer, EnvRateLimit, EnvRateBurst, EnvCORSOrigins,
}

// clearEnvVars blanks every APP_ variable for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	// Arrange
	clearEnvVars(t)

	// Act
	cfg, err := Load()

	// Assert
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.ServerPort != DefaultServerPort {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, DefaultServerPort)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %s, want %s", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v, want %v", cfg.ShutdownTimeout, DefaultShutdownTimeout)
	}
	if cfg.StoreDriver != DefaultStoreDriver {
		t.Errorf("StoreDriver = %s, want %s", cfg.StoreDriver, DefaultStoreDriver)
	}
	if cfg.AuthMode != DefaultAuthMode {
		t.Errorf("AuthMode = %s, want %s", cfg.AuthMode, DefaultAuthMode)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %v, want 0", cfg.RateLimit)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(*testing.T, *Config)
	}{
		{
			name:    "custom server port",
			envVars: map[string]string{EnvServerPort: "9090"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.ServerPort != 9090 {
					t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
				}
			},
		},
		{
			name:    "custom shutdown timeout",
			envVars: map[string]string{EnvShutdownTimeout: "5s"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.ShutdownTimeout != 5*time.Second {
					t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
				}
			},
		},
		{
			name:    "metrics disabled",
			envVars: map[string]string{EnvMetricsEnabled: "false"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.MetricsEnabled {
					t.Error("MetricsEnabled = true, want false")
				}
			},
		},
		{
			name:    "otlp endpoint",
			envVars: map[string]string{EnvOTLPEndpoint: "localhost:4318"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.OTLPEndpoint != "localhost:4318" {
					t.Errorf("OTLPEndpoint = %s, want localhost:4318", cfg.OTLPEndpoint)
				}
			},
		},
		{
			name:    "sqlite store",
			envVars: map[string]string{EnvStoreDriver: "sqlite", EnvStoreDSN: "file:beers.db"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.StoreDriver != "sqlite" || cfg.SQLiteDSN() != "file:beers.db" {
					t.Errorf("store = %s %s", cfg.StoreDriver, cfg.SQLiteDSN())
				}
			},
		},
		{
			name:    "sqlite defaults to memory",
			envVars: map[string]string{EnvStoreDriver: "sqlite"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.SQLiteDSN() != ":memory:" {
					t.Errorf("SQLiteDSN() = %s, want :memory:", cfg.SQLiteDSN())
				}
			},
		},
		{
			name:    "jwt auth",
			envVars: map[string]string{EnvAuthMode: "jwt", EnvJWTSecret: "s", EnvJWTIssuer: "beerstock"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.JWTSecret != "s" || cfg.JWTIssuer != "beerstock" {
					t.Errorf("jwt config = %q %q", cfg.JWTSecret, cfg.JWTIssuer)
				}
			},
		},
		{
			name:    "rate limit",
			envVars: map[string]string{EnvRateLimit: "12.5", EnvRateBurst: "40"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.RateLimit != 12.5 || cfg.RateBurst != 40 {
					t.Errorf("rate = %v/%d", cfg.RateLimit, cfg.RateBurst)
				}
			},
		},
		{
			name:    "cors origins",
			envVars: map[string]string{EnvCORSOrigins: " https://a.example , ,https://b.example"},
			validate: func(t *testing.T, cfg *Config) {
				if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
					t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", EnvServerPort, "eighty"},
		{"timeout", EnvShutdownTimeout, "soon"},
		{"metrics", EnvMetricsEnabled, "maybe"},
		{"rate", EnvRateLimit, "fast"},
		{"burst", EnvRateBurst, "big"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s should fail", tt.key, tt.val)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"defaults", func(*Config) {}, nil},
		{"port zero", func(c *Config) { c.ServerPort = 0 }, ErrInvalidServerPort},
		{"port too high", func(c *Config) { c.ServerPort = 70000 }, ErrInvalidServerPort},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, ErrInvalidLogLevel},
		{"zero timeout", func(c *Config) { c.ShutdownTimeout = 0 }, ErrInvalidShutdownTimeout},
		{"unknown driver", func(c *Config) { c.StoreDriver = "mysql" }, ErrInvalidStoreDriver},
		{"postgres without dsn", func(c *Config) { c.StoreDriver = "postgres" }, ErrMissingStoreDSN},
		{"postgres with dsn", func(c *Config) {
			c.StoreDriver = "postgres"
			c.StoreDSN = "postgres://localhost/beers"
		}, nil},
		{"unknown auth mode", func(c *Config) { c.AuthMode = "oidc" }, ErrInvalidAuthMode},
		{"basic without users", func(c *Config) { c.AuthMode = "basic" }, ErrInvalidBasicAuthConfig},
		{"apikey without keys", func(c *Config) { c.AuthMode = "apikey" }, ErrInvalidAPIKeyConfig},
		{"jwt without secret", func(c *Config) { c.AuthMode = "jwt" }, ErrInvalidJWTConfig},
		{"multi without anything", func(c *Config) { c.AuthMode = "multi" }, ErrInvalidMultiAuthConfig},
		{"multi with jwt", func(c *Config) {
			c.AuthMode = "multi"
			c.JWTSecret = "s"
		}, nil},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, ErrInvalidRateLimit},
		{"rate without burst", func(c *Config) {
			c.RateLimit = 5
			c.RateBurst = 0
		}, ErrInvalidRateBurst},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := Default()
	cfg.ServerPort = 9000

	if got := cfg.Address(); got != ":9000" {
		t.Errorf("Address() = %s, want :9000", got)
	}
}
