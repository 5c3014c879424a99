package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Mode != ModeOffline {
		t.Fatalf("mode = %s, want offline default", cfg.Mode)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("addr = %s", cfg.HTTPAddr)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("driver = %s", cfg.DBDriver)
	}
	if cfg.ReportTTLSec != 30 {
		t.Fatalf("report ttl = %d", cfg.ReportTTLSec)
	}
	if len(cfg.CORSOriginsOffline) != 2 {
		t.Fatalf("offline origins = %v", cfg.CORSOriginsOffline)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("REPORT_TTL_SEC", "120")
	t.Setenv("ENABLE_LOCAL_AUTH", "false")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Mode != ModeOnline || cfg.DBDriver != "postgres" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.ReportTTLSec != 120 {
		t.Fatalf("report ttl = %d", cfg.ReportTTLSec)
	}
	if cfg.EnableLocalAuth {
		t.Fatal("local auth should be disabled")
	}
}

func TestConfigFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	body := "http_addr: \":9090\"\nredis_addr: \"localhost:6379\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("addr = %s, want file override", cfg.HTTPAddr)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("redis addr = %s", cfg.RedisAddr)
	}
	// Fields the file omits keep their env/default values.
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("driver = %s, want default kept", cfg.DBDriver)
	}
}

func TestFromEnvBadConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := FromEnv(); err == nil {
		t.Fatal("missing config file should error")
	}
}
