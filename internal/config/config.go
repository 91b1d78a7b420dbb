package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/payshare/internal/money"
)

type Config struct {
	DB struct {
		Driver string `envconfig:"PAYSHARE_DB_DRIVER" default:"sqlite"`
		// DSN is a file path for sqlite and a connection URL for postgres.
		DSN string `envconfig:"PAYSHARE_DB_DSN" default:"payshare.db"`
	}

	Log struct {
		Level string `envconfig:"PAYSHARE_LOG_LEVEL" default:"info"`
	}

	Auth struct {
		BcryptCost int           `envconfig:"PAYSHARE_BCRYPT_COST" default:"10"`
		JWTSecret  string        `envconfig:"PAYSHARE_JWT_SECRET"`
		SessionTTL time.Duration `envconfig:"PAYSHARE_SESSION_TTL" default:"24h"`
	}

	Ledger struct {
		DefaultCurrency string `envconfig:"PAYSHARE_DEFAULT_CURRENCY" default:"EUR"`
	}

	Metrics struct {
		Addr string `envconfig:"PAYSHARE_METRICS_ADDR" default:":9090"`
		// PushgatewayURL receives the ledger counters after every command.
		// Empty disables pushing.
		PushgatewayURL string `envconfig:"PAYSHARE_PUSHGATEWAY_URL"`
		PushJob        string `envconfig:"PAYSHARE_PUSH_JOB" default:"payshare"`
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate normalises the config and rejects values the ledger cannot run with.
func (c *Config) Validate() error {
	c.DB.Driver = strings.ToLower(c.DB.Driver)
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid PAYSHARE_DB_DRIVER %q: want sqlite or postgres", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("PAYSHARE_DB_DSN is required")
	}

	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("invalid PAYSHARE_BCRYPT_COST %d: want %d..%d", c.Auth.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("invalid PAYSHARE_SESSION_TTL %s: must be positive", c.Auth.SessionTTL)
	}

	c.Ledger.DefaultCurrency = strings.ToUpper(c.Ledger.DefaultCurrency)
	if !money.ValidCurrency(c.Ledger.DefaultCurrency) {
		return fmt.Errorf("invalid PAYSHARE_DEFAULT_CURRENCY %q", c.Ledger.DefaultCurrency)
	}

	return nil
}

// LogLevel maps the configured level name to a slog level. Unknown names mean info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
