package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

const dotEnvPath = ".env"

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   string `env:"PORT" envDefault:"8080"`

	DBPath           string `env:"DB_PATH" envDefault:"./dev.db"`
	CategoryDataPath string `env:"CATEGORY_DATA_PATH" envDefault:"./data/fee.json"`

	// RedisAddr is optional; an empty address keeps the category cache in memory.
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"1h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads the local .env file (if any) and then the process environment.
func Load() (Config, error) {
	// Best-effort: production injects real environment variables.
	if _, err := loadDotEnv(dotEnvPath); err != nil {
		return Config{}, fmt.Errorf("load %s: %w", dotEnvPath, err)
	}
	return parse()
}

func parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	if cfg.CacheTTL < 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must not be negative, got %s", cfg.CacheTTL)
	}
	return cfg, nil
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool {
	return c.AppEnv == "" || c.AppEnv == "development" || c.AppEnv == "dev"
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
