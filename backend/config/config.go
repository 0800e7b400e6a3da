// Package config reads the server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type Config struct {
	ServerURL     string
	JWTSigningKey string

	StorageBackend string
	MongoURI       string
	DBName         string
	RedisURL       string
	RabbitMQURL    string

	SMTP SMTPConfig

	FederatedPublicKeyPath string
	FederatedAudience      string

	Location            *time.Location
	StreakCheckSchedule string

	LogLevel  string
	LogFormat string

	RateLimitRPS    float64
	RateLimitBurst  int
	NotifyConsumers int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Email    string
	Password string
}

// Enabled reports whether outgoing mail is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Email != "" && c.Password != ""
}

// LoadDotenv loads the first readable .env file among paths into the
// process environment. Missing files are not an error.
func LoadDotenv(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup reads the configuration through lookup, applying defaults and
// validating the result.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	env := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	var errs []error
	number := func(key string, def int) int {
		raw := env(key, "")
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, raw))
			return def
		}
		return n
	}

	cfg := &Config{
		ServerURL:              env("SERVER_URL", "http://localhost:8080"),
		JWTSigningKey:          env("JWT_SIGNING_KEY", ""),
		StorageBackend:         strings.ToLower(env("STORAGE_BACKEND", StorageMongo)),
		MongoURI:               env("MONGODB_URI", ""),
		DBName:                 env("DB_NAME", "bienestar"),
		RedisURL:               env("REDIS_URL", ""),
		RabbitMQURL:            env("RABBITMQ_URL", ""),
		FederatedPublicKeyPath: env("FEDERATED_PUBLIC_KEY_PATH", ""),
		FederatedAudience:      env("FEDERATED_AUDIENCE", ""),
		StreakCheckSchedule:    env("STREAK_CHECK_SCHEDULE", "0 20 * * *"),
		LogLevel:               strings.ToLower(env("LOG_LEVEL", "info")),
		LogFormat:              strings.ToLower(env("LOG_FORMAT", "json")),
		SMTP: SMTPConfig{
			Host:     env("SMTP_HOST", "smtp.gmail.com"),
			Port:     number("SMTP_PORT", 587),
			Email:    env("SMTP_EMAIL", ""),
			Password: env("SMTP_PASSWORD", ""),
		},
		RateLimitBurst:  number("RATE_LIMIT_BURST", 20),
		NotifyConsumers: number("NOTIFY_CONSUMERS", 2),
	}

	rps := env("RATE_LIMIT_RPS", "10")
	if v, err := strconv.ParseFloat(rps, 64); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS: %q is not a number", rps))
	} else {
		cfg.RateLimitRPS = v
	}

	tz := env("APP_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE: %w", err))
		loc = time.UTC
	}
	cfg.Location = loc

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required"))
	}
	switch c.StorageBackend {
	case StorageMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required with the mongo storage backend"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be %q or %q", StorageMongo, StorageMemory))
	}
	if u, err := url.Parse(c.ServerURL); err != nil || u.Host == "" {
		errs = append(errs, fmt.Errorf("SERVER_URL %q has no host", c.ServerURL))
	}
	if _, err := cron.ParseStandard(c.StreakCheckSchedule); err != nil {
		errs = append(errs, fmt.Errorf("STREAK_CHECK_SCHEDULE: %w", err))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.NotifyConsumers < 1 {
		errs = append(errs, errors.New("NOTIFY_CONSUMERS must be at least 1"))
	}
	return errors.Join(errs...)
}

// ListenAddr is the host:port part of ServerURL.
func (c *Config) ListenAddr() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return ""
	}
	return u.Host
}
