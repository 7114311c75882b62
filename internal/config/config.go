// internal/config/config.go
//
// Runtime configuration for the Water Trek server.
// Values come from the process environment, optionally seeded from a .env
// file in the working directory (development). Parsing is done by
// caarlos0/env into a typed Config; Validate rejects combinations the server
// cannot run with.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Backends accepted by STATE_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the full server configuration.
type Config struct {
	Port     string `env:"PORT" envDefault:"5000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabasePath string        `env:"DATABASE_PATH" envDefault:"./data/watertrek.db"`
	StateBackend string        `env:"STATE_BACKEND" envDefault:"sqlite"`
	RedisAddr    string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass    string        `env:"REDIS_PASSWORD"`
	RedisDB      int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix  string        `env:"REDIS_KEY_PREFIX" envDefault:"watertrek:state:"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"1h"`

	ClientOrigin    string        `env:"CLIENT_ORIGIN" envDefault:"http://localhost:3000"`
	AuthRateLimit   int           `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	TrialDuration      time.Duration `env:"TRIAL_DURATION" envDefault:"60s"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`

	DailyLimit     float64 `env:"DAILY_LIMIT"`
	LimitSourceURL string  `env:"LIMIT_SOURCE_URL"`
	CatalogFile    string  `env:"CATALOG_FILE"`
}

// Load reads .env (if present) and parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse parses the current environment without touching .env.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StateBackend = strings.ToLower(strings.TrimSpace(cfg.StateBackend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the defaults cannot fix.
func (c Config) Validate() error {
	var errs []error
	switch c.StateBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STATE_BACKEND %q: want sqlite, redis or memory", c.StateBackend))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.DailyLimit < 0 {
		errs = append(errs, fmt.Errorf("DAILY_LIMIT %v must be positive", c.DailyLimit))
	}
	if c.AuthRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_RATE_LIMIT %d must be positive", c.AuthRateLimit))
	}
	if c.TrialDuration <= 0 {
		errs = append(errs, fmt.Errorf("TRIAL_DURATION %s must be positive", c.TrialDuration))
	}
	return errors.Join(errs...)
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
