package app

import (
	"errors"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the web server and the worker.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogFile   string `envconfig:"LOG_FILE"`

	CatalogAPIURL     string        `envconfig:"CATALOG_API_URL" required:"true"`
	CatalogAPITimeout time.Duration `envconfig:"CATALOG_API_TIMEOUT" default:"10s"`

	RedisAddr string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"2m"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	WarmupCron  string `envconfig:"WARMUP_CRON" default:"*/10 * * * *"`
	WarmupPages int    `envconfig:"WARMUP_PAGES" default:"3"`
}

// LoadConfig reads configuration from environment variables. A .env file in
// the working directory is loaded first when present; real environment
// variables win over it.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.CatalogAPIURL == "" {
		return errors.New("catalog api url must be provided")
	}
	u, err := url.Parse(c.CatalogAPIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("catalog api url must be an absolute http(s) url")
	}
	if c.WarmupPages < 0 {
		return errors.New("warmup pages must not be negative")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("rate limit must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
