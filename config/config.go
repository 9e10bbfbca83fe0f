// Package config loads service settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether enough is set to talk to R2.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.AccessKeySecret != "" && r.Bucket != ""
}

type Config struct {
	Port             string
	DatabaseURL      string
	GameServiceToken string
	AllowedOrigins   []string

	RedisURL     string
	ClaimLockTTL time.Duration

	ClaimEndpointURL     string
	ClaimEndpointTimeout time.Duration
	AuthServiceURL       string

	StreakReportInterval time.Duration
	SessionIdleTimeout   time.Duration

	LogLevel  string
	LogFormat string

	R2 R2Config
}

// Load reads .env when present and then the process environment.
// It returns the first malformed duration it finds; missing required
// values are reported by Validate.
func Load() (*Config, bool, error) {
	dotenv := godotenv.Load() == nil

	cfg := &Config{
		Port:             getEnv("PORT", "5200"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GameServiceToken: os.Getenv("GAME_SERVICE_TOKEN"),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RedisURL:         os.Getenv("REDIS_URL"),
		ClaimEndpointURL: strings.TrimRight(os.Getenv("CLAIM_ENDPOINT_URL"), "/"),
		AuthServiceURL:   strings.TrimRight(os.Getenv("AUTH_SERVICE_URL"), "/"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"CLAIM_LOCK_TTL", 10 * time.Second, &cfg.ClaimLockTTL},
		{"CLAIM_ENDPOINT_TIMEOUT", 10 * time.Second, &cfg.ClaimEndpointTimeout},
		{"STREAK_REPORT_INTERVAL", 15 * time.Minute, &cfg.StreakReportInterval},
		{"SESSION_IDLE_TIMEOUT", 30 * time.Minute, &cfg.SessionIdleTimeout},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def)
		if err != nil {
			return nil, dotenv, err
		}
		*d.dest = v
	}

	return cfg, dotenv, nil
}

// Validate returns an error naming every missing required value.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL environment variable not set"))
	}
	if c.GameServiceToken == "" {
		errs = append(errs, errors.New("GAME_SERVICE_TOKEN environment variable not set"))
	}
	if c.ClaimLockTTL <= 0 {
		errs = append(errs, errors.New("CLAIM_LOCK_TTL must be positive"))
	}
	if c.StreakReportInterval <= 0 {
		errs = append(errs, errors.New("STREAK_REPORT_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the fiber listen address.
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
