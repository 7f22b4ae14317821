// Package config loads runtime settings from the environment (and an optional
// .env file) with defaults for local development.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPAddr       string
	AllowedOrigins string
	GatewayToken   string

	StoreDriver string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	SyncInterval          time.Duration // background expiry sweep cadence
	AccessFeeInterval     time.Duration // connected time per access fee
	AccessFeeAmount       int64
	SessionIdleTimeout    time.Duration
	StartingBalance       int64
	AdminEmails           []string
	LedgerArchiveInterval time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string
	CDNBaseURL        string
}

func defaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":5200")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("SYNC_INTERVAL", "30s")
	v.SetDefault("ACCESS_FEE_INTERVAL", "100s")
	v.SetDefault("ACCESS_FEE_AMOUNT", 1)
	v.SetDefault("SESSION_IDLE_TIMEOUT", "5m")
	v.SetDefault("STARTING_BALANCE", 10)
	v.SetDefault("LEDGER_ARCHIVE_INTERVAL", "24h")
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on environment")
	}
	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from v after applying defaults. Split out so
// tests can feed values without touching the process environment.
func FromViper(v *viper.Viper) (*Config, error) {
	defaults(v)

	cfg := &Config{
		HTTPAddr:              v.GetString("HTTP_ADDR"),
		AllowedOrigins:        v.GetString("ALLOWED_ORIGINS"),
		GatewayToken:          v.GetString("GATEWAY_TOKEN"),
		StoreDriver:           strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseURL:           v.GetString("DATABASE_URL"),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		SyncInterval:          v.GetDuration("SYNC_INTERVAL"),
		AccessFeeInterval:     v.GetDuration("ACCESS_FEE_INTERVAL"),
		AccessFeeAmount:       v.GetInt64("ACCESS_FEE_AMOUNT"),
		SessionIdleTimeout:    v.GetDuration("SESSION_IDLE_TIMEOUT"),
		StartingBalance:       v.GetInt64("STARTING_BALANCE"),
		AdminEmails:           splitList(v.GetString("ADMIN_EMAILS")),
		LedgerArchiveInterval: v.GetDuration("LEDGER_ARCHIVE_INTERVAL"),
		R2AccountID:           v.GetString("R2_ACCOUNT_ID"),
		R2AccessKeyID:         v.GetString("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret:     v.GetString("R2_ACCESS_KEY_SECRET"),
		R2BucketName:          v.GetString("R2_BUCKET_NAME"),
		CDNBaseURL:            v.GetString("CDN_BASE_URL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.GatewayToken == "" {
		return errors.New("GATEWAY_TOKEN environment variable is required")
	}
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is required for the postgres store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.SyncInterval <= 0 || c.AccessFeeInterval <= 0 || c.SessionIdleTimeout <= 0 || c.LedgerArchiveInterval <= 0 {
		return errors.New("intervals must be positive durations")
	}
	if c.AccessFeeAmount < 1 {
		return errors.New("ACCESS_FEE_AMOUNT must be at least 1")
	}
	if c.StartingBalance < 0 {
		return errors.New("STARTING_BALANCE cannot be negative")
	}
	return nil
}

// Origins returns the CORS origins, one per entry of ALLOWED_ORIGINS.
func (c *Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
