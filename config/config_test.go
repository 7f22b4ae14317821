package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	v.Set("GATEWAY_TOKEN", "secret")
	v.Set("STORE_DRIVER", "memory")

	cfg, err := FromViper(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":5200" || cfg.AccessFeeInterval != 100*time.Second || cfg.AccessFeeAmount != 1 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.StartingBalance != 10 || cfg.SyncInterval != 30*time.Second || cfg.LedgerArchiveInterval != 24*time.Hour {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestFromViperOverridesAndLists(t *testing.T) {
	v := viper.New()
	v.Set("GATEWAY_TOKEN", "secret")
	v.Set("DATABASE_URL", "postgres://localhost/coins")
	v.Set("ADMIN_EMAILS", " a@x.io, ,b@x.io ")
	v.Set("ALLOWED_ORIGINS", "https://one.io,https://two.io")
	v.Set("ACCESS_FEE_INTERVAL", "45s")

	cfg, err := FromViper(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Fatalf("driver = %s", cfg.StoreDriver)
	}
	if len(cfg.AdminEmails) != 2 || cfg.AdminEmails[1] != "b@x.io" {
		t.Fatalf("admin emails = %v", cfg.AdminEmails)
	}
	if len(cfg.Origins()) != 2 || cfg.AccessFeeInterval != 45*time.Second {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
}

func TestValidateRejectsMissingSettings(t *testing.T) {
	cases := map[string]map[string]any{
		"no token":        {"STORE_DRIVER": "memory"},
		"postgres no dsn": {"GATEWAY_TOKEN": "t"},
		"unknown driver":  {"GATEWAY_TOKEN": "t", "STORE_DRIVER": "sqlite"},
		"zero fee":        {"GATEWAY_TOKEN": "t", "STORE_DRIVER": "memory", "ACCESS_FEE_AMOUNT": 0},
	}
	for name, values := range cases {
		v := viper.New()
		for k, val := range values {
			v.Set(k, val)
		}
		if _, err := FromViper(v); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
