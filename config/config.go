// Package config lê a configuração do gateway das variáveis de ambiente.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:":8080"`
	PlayerBaseURL string `env:"PLAYER_BASE_URL" envDefault:"http://localhost:8080"`
	AppVersion    string `env:"APP_VERSION" envDefault:"dev"`

	// Content API
	APIURL     string        `env:"API_URL,required"`
	APIKey     string        `env:"API_KEY"`
	APISecret  string        `env:"API_SECRET"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	APIRPS     float64       `env:"API_RPS" envDefault:"0"`
	APIBurst   int           `env:"API_BURST" envDefault:"10"`

	CacheTTL         time.Duration `env:"CACHE_TTL" envDefault:"24h"`
	CacheSweepEvery  time.Duration `env:"CACHE_SWEEP_EVERY" envDefault:"60s"`
	CacheLoadTimeout time.Duration `env:"CACHE_LOAD_TIMEOUT" envDefault:"15s"`

	RateEnabled         bool          `env:"RATE_ENABLED" envDefault:"true"`
	RateWindow          time.Duration `env:"RATE_WINDOW" envDefault:"1m"`
	RatePageMax         int           `env:"RATE_PAGE_MAX" envDefault:"20"`
	RateTrackMax        int           `env:"RATE_TRACK_MAX" envDefault:"60"`
	RateKeyHeader       string        `env:"RATE_KEY_HEADER"`
	TrustProxyHeaders   bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	AddRateLimitHeaders bool          `env:"ADD_RATELIMIT_HEADERS" envDefault:"false"`

	CookieName   string        `env:"COOKIE_NAME" envDefault:"anonymousId"`
	CookieTTL    time.Duration `env:"COOKIE_TTL" envDefault:"720h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`

	ConcurrencyMax     int           `env:"CONCURRENCY_MAX" envDefault:"100"`
	ConcurrencyTimeout time.Duration `env:"CONCURRENCY_TIMEOUT" envDefault:"0s"`

	RateStats RateStats `envPrefix:"RATE_STATS_"`

	NATSURL    string `env:"NATS_URL"`
	TrackTopic string `env:"TRACK_TOPIC" envDefault:"player-events"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// RateStats liga a persistência das decisões de rate limit no Redis.
type RateStats struct {
	Enabled       bool          `env:"ENABLED" envDefault:"false"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	Prefix        string        `env:"PREFIX" envDefault:"ratelimit:stats"`
	TTL           time.Duration `env:"TTL" envDefault:"24h"`
	Bucket        string        `env:"BUCKET" envDefault:"minute"`
	TrackKeys     bool          `env:"TRACK_KEYS" envDefault:"false"`
}

// Load lê o ambiente e valida.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.PlayerBaseURL = strings.TrimRight(cfg.PlayerBaseURL, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_URL must be an absolute URL, got %q", c.APIURL))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("API_TIMEOUT must be > 0"))
	}
	if c.APIRPS < 0 {
		errs = append(errs, errors.New("API_RPS must be >= 0"))
	}
	if c.APIRPS > 0 && c.APIBurst <= 0 {
		errs = append(errs, errors.New("API_BURST must be > 0 when API_RPS is set"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("CACHE_TTL must be >= 0"))
	}
	if c.RateEnabled {
		if c.RateWindow <= 0 {
			errs = append(errs, errors.New("RATE_WINDOW must be > 0"))
		}
		if c.RatePageMax <= 0 || c.RateTrackMax <= 0 {
			errs = append(errs, errors.New("RATE_PAGE_MAX and RATE_TRACK_MAX must be > 0"))
		}
	}
	if c.ConcurrencyMax < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	if c.RateStats.Enabled && strings.TrimSpace(c.RateStats.RedisAddr) == "" {
		errs = append(errs, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true"))
	}
	switch c.RateStats.Bucket {
	case "minute", "none":
	default:
		errs = append(errs, fmt.Errorf("RATE_STATS_BUCKET must be minute or none, got %q", c.RateStats.Bucket))
	}

	return errors.Join(errs...)
}
