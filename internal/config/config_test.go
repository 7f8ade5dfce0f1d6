package config

import (
	"os"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "syncbridge-test-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	// Clear any existing env vars
	t.Setenv("DATABASE_URL", "")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
	if err.Error() != "database_url is required (env: DATABASE_URL)" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 8000 {
		t.Errorf("expected HTTPPort 8000, got %d", cfg.HTTPPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel info, got %s", cfg.LogLevel)
	}
	if cfg.LogFile != "" {
		t.Errorf("expected empty LogFile, got %s", cfg.LogFile)
	}
	if cfg.OTELEndpoint != "localhost:4317" {
		t.Errorf("expected OTELEndpoint localhost:4317, got %s", cfg.OTELEndpoint)
	}
	if cfg.TraceSampleRatio != 1 {
		t.Errorf("expected TraceSampleRatio 1, got %v", cfg.TraceSampleRatio)
	}
	if cfg.NotifyEnabled {
		t.Error("expected notifications disabled by default")
	}
	if cfg.NotifySubjectPrefix != "syncbridge" {
		t.Errorf("expected NotifySubjectPrefix syncbridge, got %s", cfg.NotifySubjectPrefix)
	}
	if cfg.SyncRateLimit != 0 {
		t.Errorf("expected SyncRateLimit 0, got %v", cfg.SyncRateLimit)
	}
	if cfg.MaxBodyBytes != 10<<20 {
		t.Errorf("expected MaxBodyBytes 10MiB, got %d", cfg.MaxBodyBytes)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://custom/db")
	t.Setenv("PORT", "9999")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")
	t.Setenv("NOTIFY_ENABLED", "true")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("SYNC_RATE_LIMIT", "2.5")
	t.Setenv("SYNC_RATE_BURST", "5")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://custom/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != 9999 {
		t.Errorf("expected HTTPPort 9999, got %d", cfg.HTTPPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel debug, got %s", cfg.LogLevel)
	}
	if cfg.OTELEndpoint != "otel-collector:4317" {
		t.Errorf("expected OTELEndpoint otel-collector:4317, got %s", cfg.OTELEndpoint)
	}
	if !cfg.NotifyEnabled || cfg.NATSURL != "nats://nats:4222" {
		t.Errorf("expected notify settings from env, got enabled=%v url=%s", cfg.NotifyEnabled, cfg.NATSURL)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "10.0.0.0/8" || cfg.TrustedProxies[1] != "192.168.1.1" {
		t.Errorf("expected two trusted proxies from env, got %v", cfg.TrustedProxies)
	}
	if cfg.SyncRateLimit != 2.5 || cfg.SyncRateBurst != 5 {
		t.Errorf("expected rate 2.5/5, got %v/%d", cfg.SyncRateLimit, cfg.SyncRateBurst)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"negative rate", map[string]string{"SYNC_RATE_LIMIT": "-1"}},
		{"rate without burst", map[string]string{"SYNC_RATE_LIMIT": "1", "SYNC_RATE_BURST": "0"}},
		{"port", map[string]string{"PORT": "70000"}},
		{"sample ratio", map[string]string{"TRACE_SAMPLE_RATIO": "1.5"}},
		{"trusted proxy", map[string]string{"TRUSTED_PROXIES": "proxy.internal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/test")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if _, err := Load(""); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
database_url: "postgres://config-file/db"
http_port: 7777
log_level: warn
notify_subject_prefix: erp
max_body_bytes: 1024
`)

	// Clear env vars that would override
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://config-file/db" {
		t.Errorf("expected DatabaseURL from config file, got %s", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != 7777 {
		t.Errorf("expected HTTPPort 7777, got %d", cfg.HTTPPort)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected LogLevel warn, got %s", cfg.LogLevel)
	}
	if cfg.NotifySubjectPrefix != "erp" {
		t.Errorf("expected NotifySubjectPrefix erp, got %s", cfg.NotifySubjectPrefix)
	}
	if cfg.MaxBodyBytes != 1024 {
		t.Errorf("expected MaxBodyBytes 1024, got %d", cfg.MaxBodyBytes)
	}
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	path := writeConfig(t, `
database_url: "postgres://from-file/db"
http_port: 7777
`)

	// Set env var to override config file
	t.Setenv("DATABASE_URL", "postgres://from-env/db")
	t.Setenv("PORT", "8888")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Env should override config file
	if cfg.DatabaseURL != "postgres://from-env/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != 8888 {
		t.Errorf("expected HTTPPort 8888 from env, got %d", cfg.HTTPPort)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	_, err := Load("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent config file")
	}
}
