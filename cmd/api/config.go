package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// config is read from the environment (optionally via a .env file) first, then
// command-line flags override it.
type config struct {
	Port     int    `env:"PORT" envDefault:"4000"`
	Env      string `env:"ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// InputsFile optionally replaces the built-in input table with a YAML file.
	InputsFile string `env:"INPUTS_FILE"`

	DB struct {
		DSN      string        `env:"DB_DSN"`
		MaxConns int           `env:"DB_MAX_CONNS" envDefault:"10"`
		Timeout  time.Duration `env:"DB_TIMEOUT" envDefault:"5s"`
	}

	Limiter struct {
		Enabled bool    `env:"LIMITER_ENABLED" envDefault:"true"`
		RPS     float64 `env:"LIMITER_RPS" envDefault:"10"`
		Burst   int     `env:"LIMITER_BURST" envDefault:"20"`

		// TrustProxy keys clients by X-Forwarded-For / X-Real-IP. Enable only
		// behind a proxy that overwrites those headers.
		TrustProxy bool `env:"LIMITER_TRUST_PROXY"`
	}
}

const envPrefix = "FORMFIELDS_"

// loadConfig builds the configuration for args (without the program name).
func loadConfig(args []string) (config, error) {
	// a missing .env file is fine, a malformed one is not
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return config{}, err
	}

	flags := flag.NewFlagSet("formfields-api", flag.ContinueOnError)
	flags.IntVar(&cfg.Port, "port", cfg.Port, "API server port")
	flags.StringVar(&cfg.Env, "env", cfg.Env, "Environment (development|staging|production)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Minimum log level (debug|info|warn|error)")
	flags.StringVar(&cfg.InputsFile, "inputs", cfg.InputsFile, "YAML file with the input table")
	flags.StringVar(&cfg.DB.DSN, "db-dsn", cfg.DB.DSN, "PostgreSQL DSN for failure statistics (empty keeps them in memory)")
	flags.IntVar(&cfg.DB.MaxConns, "db-max-conns", cfg.DB.MaxConns, "PostgreSQL max open connections")
	flags.DurationVar(&cfg.DB.Timeout, "db-timeout", cfg.DB.Timeout, "PostgreSQL query timeout")
	flags.BoolVar(&cfg.Limiter.Enabled, "limiter-enabled", cfg.Limiter.Enabled, "Enable rate limiter")
	flags.Float64Var(&cfg.Limiter.RPS, "limiter-rps", cfg.Limiter.RPS, "Rate limiter maximum requests per second")
	flags.IntVar(&cfg.Limiter.Burst, "limiter-burst", cfg.Limiter.Burst, "Rate limiter maximum burst")
	flags.BoolVar(&cfg.Limiter.TrustProxy, "limiter-trust-proxy", cfg.Limiter.TrustProxy, "Key the rate limiter on X-Forwarded-For/X-Real-IP")

	if err := flags.Parse(args); err != nil {
		return config{}, err
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return config{}, errors.New("port must be between 1 and 65535")
	}
	if cfg.Limiter.Enabled && (cfg.Limiter.RPS <= 0 || cfg.Limiter.Burst <= 0) {
		return config{}, errors.New("limiter rps and burst must be positive")
	}

	return cfg, nil
}
