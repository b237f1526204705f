package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Pairing  PairingConfig
}

type ServerConfig struct {
	Host        string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port        int    `env:"SERVER_PORT" envDefault:"8080"`
	Secure      bool   `env:"SERVER_SECURE" envDefault:"false"` // HTTPS only; forced on in production
	Environment string `env:"APP_ENV" envDefault:"development"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`
}

type DatabaseConfig struct {
	Host           string `env:"DB_HOST" envDefault:"localhost"`
	Port           int    `env:"DB_PORT" envDefault:"5432"`
	User           string `env:"DB_USER" envDefault:"anniversary"`
	Password       string `env:"DB_PASSWORD" envDefault:"anniversary"`
	DBName         string `env:"DB_NAME" envDefault:"anniversary"`
	SSLMode        string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns       int32  `env:"DB_MAX_CONNS" envDefault:"25"`
	MinConns       int32  `env:"DB_MIN_CONNS" envDefault:"5"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`
}

type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type PairingConfig struct {
	// EventsChannel is the redis pub/sub channel pairing events go to.
	// Empty disables publication.
	EventsChannel string `env:"PAIRING_EVENTS_CHANNEL" envDefault:"pairing-events"`
	// RateLimit caps pairing writes per user per RateWindow. Zero disables it.
	RateLimit  int           `env:"PAIRING_RATE_LIMIT" envDefault:"30"`
	RateWindow time.Duration `env:"PAIRING_RATE_WINDOW" envDefault:"1m"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// Load reads the configuration from the environment. Malformed values are
// errors rather than silently replaced by defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.Database.MinConns > cfg.Database.MaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.Database.MinConns, cfg.Database.MaxConns)
	}
	if cfg.Pairing.RateLimit < 0 {
		return nil, fmt.Errorf("PAIRING_RATE_LIMIT must not be negative, got %d", cfg.Pairing.RateLimit)
	}
	if cfg.Server.IsProduction() {
		cfg.Server.Secure = true
	}
	return cfg, nil
}
