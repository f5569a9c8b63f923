// Package config loads rentvideo settings from defaults, an optional YAML file
// and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"rentvideo/internal/database"
)

// Config holds all rentvideo configuration.
type Config struct {
	// Development relaxes secret checks and switches to console logs.
	Development bool `yaml:"development"`

	HTTP      HTTPConfig      `yaml:"http"`
	Database  database.Config `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Rental    RentalConfig    `yaml:"rental"`
	Seed      SeedConfig      `yaml:"seed"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// AuthConfig configures tokens and login throttling.
type AuthConfig struct {
	JWTSecret      string `yaml:"jwt_secret"`
	TokenTTL       string `yaml:"token_ttl"`
	LoginPerMinute int    `yaml:"login_per_minute"` // 0 disables throttling
	LoginBurst     int    `yaml:"login_burst"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// TelemetryConfig configures trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	Insecure     bool   `yaml:"insecure"`
}

// RentalConfig configures fees and the overdue sweep.
type RentalConfig struct {
	LateFeeRate          string `yaml:"late_fee_rate"`
	TimeZone             string `yaml:"time_zone"`
	OverdueSweepInterval string `yaml:"overdue_sweep_interval"` // empty or 0 disables the sweeper
}

// SeedConfig controls sample data on startup.
type SeedConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     "15s",
			WriteTimeout:    "15s",
			ShutdownTimeout: "10s",
		},
		Database: database.Config{
			Driver:       database.DriverSQLite,
			DSN:          "file:rentvideo.db",
			MaxOpenConns: 10,
		},
		Auth: AuthConfig{
			TokenTTL:       "24h",
			LoginPerMinute: 30,
			LoginBurst:     10,
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  true,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "rentvideo",
		},
		Rental: RentalConfig{
			LateFeeRate:          "0.5",
			TimeZone:             "UTC",
			OverdueSweepInterval: "1h",
		},
		Seed: SeedConfig{
			Enabled: true,
		},
	}
}

// Load reads path if it is not empty, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
		return nil
	}
	integer := func(key string, dst *int) error {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		c.HTTP.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	str("RENTVIDEO_HTTP_ADDR", &c.HTTP.Addr)

	// DATABASE_URL implies Postgres unless a driver is set explicitly.
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.Database.DSN = v
		c.Database.Driver = database.DriverPostgres
	}
	str("RENTVIDEO_DATABASE_DRIVER", &c.Database.Driver)
	str("RENTVIDEO_DATABASE_DSN", &c.Database.DSN)

	str("RENTVIDEO_JWT_SECRET", &c.Auth.JWTSecret)
	str("RENTVIDEO_TOKEN_TTL", &c.Auth.TokenTTL)
	str("RENTVIDEO_LOG_LEVEL", &c.Logging.Level)
	str("RENTVIDEO_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)
	str("RENTVIDEO_TIME_ZONE", &c.Rental.TimeZone)
	str("RENTVIDEO_LATE_FEE_RATE", &c.Rental.LateFeeRate)
	str("RENTVIDEO_OVERDUE_SWEEP_INTERVAL", &c.Rental.OverdueSweepInterval)

	return errors.Join(
		boolean("RENTVIDEO_DEVELOPMENT", &c.Development),
		boolean("RENTVIDEO_LOG_JSON", &c.Logging.JSON),
		boolean("RENTVIDEO_OTLP_INSECURE", &c.Telemetry.Insecure),
		boolean("RENTVIDEO_SEED", &c.Seed.Enabled),
		integer("RENTVIDEO_DATABASE_MAX_OPEN_CONNS", &c.Database.MaxOpenConns),
		integer("RENTVIDEO_LOGIN_PER_MINUTE", &c.Auth.LoginPerMinute),
	)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case database.DriverPostgres, database.DriverPGX, database.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver))
	}
	if c.Database.Driver != database.DriverSQLite && c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn: required for "+c.Database.Driver))
	}

	if c.Auth.JWTSecret == "" && !c.Development {
		errs = append(errs, errors.New("auth.jwt_secret: required outside development"))
	}
	if ttl, err := time.ParseDuration(c.Auth.TokenTTL); err != nil || ttl <= 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl: must be a positive duration, got %q", c.Auth.TokenTTL))
	}
	if c.Auth.LoginPerMinute < 0 || c.Auth.LoginBurst < 0 {
		errs = append(errs, errors.New("auth: login rate and burst must not be negative"))
	}
	if c.Auth.LoginPerMinute > 0 && c.Auth.LoginBurst < 1 {
		errs = append(errs, errors.New("auth.login_burst: must be at least 1 when login_per_minute is set"))
	}

	for name, v := range map[string]string{
		"http.read_timeout":     c.HTTP.ReadTimeout,
		"http.write_timeout":    c.HTTP.WriteTimeout,
		"http.shutdown_timeout": c.HTTP.ShutdownTimeout,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be a positive duration, got %q", name, v))
		}
	}

	if rate, err := decimal.NewFromString(c.Rental.LateFeeRate); err != nil || rate.IsNegative() {
		errs = append(errs, fmt.Errorf("rental.late_fee_rate: must be a non-negative decimal, got %q", c.Rental.LateFeeRate))
	}
	if _, err := time.LoadLocation(c.Rental.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("rental.time_zone: %w", err))
	}
	if c.Rental.OverdueSweepInterval != "" {
		if d, err := time.ParseDuration(c.Rental.OverdueSweepInterval); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("rental.overdue_sweep_interval: invalid duration %q", c.Rental.OverdueSweepInterval))
		}
	}

	return errors.Join(errs...)
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ReadTimeout returns the HTTP read timeout.
func (c *Config) ReadTimeout() time.Duration { return duration(c.HTTP.ReadTimeout) }

// WriteTimeout returns the HTTP write timeout.
func (c *Config) WriteTimeout() time.Duration { return duration(c.HTTP.WriteTimeout) }

// ShutdownTimeout returns how long in-flight requests get on shutdown.
func (c *Config) ShutdownTimeout() time.Duration { return duration(c.HTTP.ShutdownTimeout) }

// TokenTTL returns the token lifetime.
func (c *Config) TokenTTL() time.Duration { return duration(c.Auth.TokenTTL) }

// OverdueSweepInterval returns the sweep period; zero disables the sweeper.
func (c *Config) OverdueSweepInterval() time.Duration { return duration(c.Rental.OverdueSweepInterval) }

// LateFeeRate returns the late fee share of the daily price.
func (c *Config) LateFeeRate() decimal.Decimal {
	return decimal.RequireFromString(c.Rental.LateFeeRate)
}

// Location returns the time zone that decides rental and due dates.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Rental.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
