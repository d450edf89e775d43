package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDotEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	return path
}

func unsetForTest(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func TestLoadDotEnv_LoadsValuesAndIgnoresNoise(t *testing.T) {
	unsetForTest(t, "A", "B", "C", "D")

	path := writeDotEnv(t, `
# comment

A=one
export B=two
C="three # not a comment"
D=four # trailing
not-a-pair
`)

	applied, err := loadDotEnv(path)
	if err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if applied != 4 {
		t.Fatalf("applied = %d, want 4", applied)
	}

	want := map[string]string{"A": "one", "B": "two", "C": "three # not a comment", "D": "four"}
	for key, value := range want {
		if got := os.Getenv(key); got != value {
			t.Fatalf("%s=%q, want %q", key, got, value)
		}
	}
}

func TestLoadDotEnv_DoesNotOverwriteExistingEnv(t *testing.T) {
	t.Setenv("KEEP", "already")
	t.Setenv("EMPTY", "")

	path := writeDotEnv(t, "KEEP=fromfile\nEMPTY=fromfile\n")

	applied, err := loadDotEnv(path)
	if err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if applied != 0 {
		t.Fatalf("applied = %d, want 0", applied)
	}
	if got := os.Getenv("KEEP"); got != "already" {
		t.Fatalf("KEEP=%q, want %q", got, "already")
	}
	if got := os.Getenv("EMPTY"); got != "" {
		t.Fatalf("EMPTY=%q, want empty", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	applied, err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil || applied != 0 {
		t.Fatalf("loadDotEnv(missing) = %d, %v; want 0, nil", applied, err)
	}
}

func TestParse_Defaults(t *testing.T) {
	unsetForTest(t, "APP_ENV", "PORT", "DB_PATH", "CATEGORY_DATA_PATH", "REDIS_ADDR", "CACHE_TTL", "LOG_LEVEL", "SHUTDOWN_TIMEOUT")

	cfg, err := parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.IsDev() {
		t.Fatalf("expected development by default, got %q", cfg.AppEnv)
	}
	if cfg.Addr() != ":8080" {
		t.Fatalf("Addr() = %q, want :8080", cfg.Addr())
	}
	if cfg.DBPath != "./dev.db" || cfg.CategoryDataPath != "./data/fee.json" {
		t.Fatalf("unexpected paths: %q %q", cfg.DBPath, cfg.CategoryDataPath)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
	if cfg.CacheTTL != time.Hour || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected durations: %s %s", cfg.CacheTTL, cfg.ShutdownTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", " Production ")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CACHE_TTL", "5m")

	cfg, err := parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.IsDev() {
		t.Fatalf("expected production, got %q", cfg.AppEnv)
	}
	if cfg.Port != "9090" || cfg.RedisAddr != "localhost:6379" || cfg.RedisDB != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("CacheTTL = %s, want 5m", cfg.CacheTTL)
	}
}

func TestParse_RejectsBadValues(t *testing.T) {
	t.Setenv("CACHE_TTL", "-1m")
	if _, err := parse(); err == nil {
		t.Fatalf("expected error for negative CACHE_TTL")
	}

	t.Setenv("CACHE_TTL", "soon")
	if _, err := parse(); err == nil {
		t.Fatalf("expected error for unparsable CACHE_TTL")
	}
}
