package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is loaded once at startup, either from the YAML file named by
// FINDMY_CONFIG or from environment variables alone.
type Config struct {
	Env        string `yaml:"env" env:"FINDMY_ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	DB         `yaml:"db"`
	Auth       `yaml:"auth"`
	Stripe     `yaml:"stripe"`
	RateLimit  `yaml:"rate_limit"`
}

type HTTPServer struct {
	Address      string        `yaml:"address" env:"FINDMY_HTTP_ADDR" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"FINDMY_HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"FINDMY_HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"FINDMY_HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type DB struct {
	DSN string `yaml:"dsn" env:"FINDMY_PG_DSN" env-default:""`
}

// Auth carries token lifetime only; the signing secret itself is read by
// the auth package from FINDMY_AUTH_SECRET so tests can reset it.
type Auth struct {
	TokenTTL time.Duration `yaml:"token_ttl" env:"FINDMY_TOKEN_TTL" env-default:"10h"`
}

type Stripe struct {
	APIKey string `yaml:"api_key" env:"FINDMY_STRIPE_KEY" env-default:""`
}

type RateLimit struct {
	Burst  int `yaml:"burst" env:"FINDMY_RATE_BURST" env-default:"20"`
	PerSec int `yaml:"per_sec" env:"FINDMY_RATE_PER_SEC" env-default:"10"`
}

// Load reads configuration from the optional YAML file plus environment.
func Load() (*Config, error) {
	var cfg Config
	if path := os.Getenv("FINDMY_CONFIG"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load that panics on failure; intended for main().
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
