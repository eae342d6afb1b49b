package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	if _, ok := os.LookupEnv("SYNC_BATCH_SIZE"); ok {
		t.Skip("SYNC_BATCH_SIZE set in the environment")
	}
	cfg := Load()
	if cfg.SyncBatchSize != 50 {
		t.Errorf("SyncBatchSize = %d, want 50", cfg.SyncBatchSize)
	}
	if cfg.SyncInterval <= 0 || cfg.TokenTTL <= 0 {
		t.Errorf("durations must be positive: %v %v", cfg.SyncInterval, cfg.TokenTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("SYNC_INTERVAL", "5s")
	t.Setenv("SYNC_BATCH_SIZE", "10")
	t.Setenv("SEED_DEMO_DATA", "true")

	cfg := Load()
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL = %v", cfg.TokenTTL)
	}
	if cfg.SyncInterval != 5*time.Second {
		t.Errorf("SyncInterval = %v", cfg.SyncInterval)
	}
	if cfg.SyncBatchSize != 10 {
		t.Errorf("SyncBatchSize = %d", cfg.SyncBatchSize)
	}
	if !cfg.SeedDemoData {
		t.Error("SeedDemoData = false")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SPLITIT_TEST_INT", "ten")
	t.Setenv("SPLITIT_TEST_BOOL", "maybe")
	t.Setenv("SPLITIT_TEST_DURATION", "-5s")

	if got := GetInt("SPLITIT_TEST_INT", 3); got != 3 {
		t.Errorf("GetInt = %d, want fallback 3", got)
	}
	if got := GetBool("SPLITIT_TEST_BOOL", true); !got {
		t.Error("GetBool should fall back to true")
	}
	if got := GetDuration("SPLITIT_TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("GetDuration = %v, want fallback 1m", got)
	}
	if got := GetString("SPLITIT_TEST_UNSET_KEY", "x"); got != "x" {
		t.Errorf("GetString = %q, want fallback", got)
	}
}

func TestInsecureDefaults(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"defaults", Config{JWTSecret: DefaultJWTSecret}, 2},
		{"empty secret", Config{SyncToken: "s3cret"}, 1},
		{"sync token only", Config{JWTSecret: DefaultJWTSecret, SyncToken: "s3cret"}, 1},
		{"configured", Config{JWTSecret: "prod-key", SyncToken: "s3cret"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.InsecureDefaults(); len(got) != tt.want {
				t.Errorf("InsecureDefaults() = %q, want %d warnings", got, tt.want)
			}
		})
	}
}
