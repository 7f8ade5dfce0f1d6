// Package config loads service settings from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port
	HTTPPort int

	LogLevel string
	// LogFile enables rotated file logging when set; stdout otherwise.
	LogFile string

	// OTLP gRPC collector address
	OTELEndpoint     string
	TracingEnabled   bool
	TraceSampleRatio float64

	// NATS Streaming settings for created-entity events
	NotifyEnabled       bool
	NATSURL             string
	STANClusterID       string
	STANClientID        string
	NotifySubjectPrefix string

	// Per-client limit on POST /sync; 0 disables limiting.
	SyncRateLimit float64
	SyncRateBurst int
	// Proxies (addresses or CIDR ranges) whose X-Forwarded-For is trusted
	// when identifying rate-limited clients.
	TrustedProxies []string

	// Largest accepted request body
	MaxBodyBytes int64
}

var envBindings = map[string]string{
	"database_url":          "DATABASE_URL",
	"http_port":             "PORT",
	"log_level":             "LOG_LEVEL",
	"log_file":              "LOG_FILE",
	"otel_endpoint":         "OTEL_EXPORTER_OTLP_ENDPOINT",
	"tracing_enabled":       "TRACING_ENABLED",
	"trace_sample_ratio":    "TRACE_SAMPLE_RATIO",
	"notify_enabled":        "NOTIFY_ENABLED",
	"nats_url":              "NATS_URL",
	"stan_cluster_id":       "STAN_CLUSTER_ID",
	"stan_client_id":        "STAN_CLIENT_ID",
	"notify_subject_prefix": "NOTIFY_SUBJECT_PREFIX",
	"sync_rate_limit":       "SYNC_RATE_LIMIT",
	"sync_rate_burst":       "SYNC_RATE_BURST",
	"trusted_proxies":       "TRUSTED_PROXIES",
	"max_body_bytes":        "MAX_BODY_BYTES",
}

// Load reads configuration. path names a YAML file; when empty, syncbridge.yaml
// in the working directory is used if it exists. Environment variables
// override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_port", 8000)
	v.SetDefault("log_level", "info")
	v.SetDefault("otel_endpoint", "localhost:4317")
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("trace_sample_ratio", 1.0)
	v.SetDefault("notify_enabled", false)
	v.SetDefault("nats_url", "nats://localhost:4222")
	v.SetDefault("stan_cluster_id", "test-cluster")
	v.SetDefault("stan_client_id", "syncbridge")
	v.SetDefault("notify_subject_prefix", "syncbridge")
	v.SetDefault("sync_rate_limit", 0)
	v.SetDefault("sync_rate_burst", 10)
	v.SetDefault("max_body_bytes", 10<<20)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("syncbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:         v.GetString("database_url"),
		HTTPPort:            v.GetInt("http_port"),
		LogLevel:            strings.ToLower(v.GetString("log_level")),
		LogFile:             v.GetString("log_file"),
		OTELEndpoint:        v.GetString("otel_endpoint"),
		TracingEnabled:      v.GetBool("tracing_enabled"),
		TraceSampleRatio:    v.GetFloat64("trace_sample_ratio"),
		NotifyEnabled:       v.GetBool("notify_enabled"),
		NATSURL:             v.GetString("nats_url"),
		STANClusterID:       v.GetString("stan_cluster_id"),
		STANClientID:        v.GetString("stan_client_id"),
		NotifySubjectPrefix: v.GetString("notify_subject_prefix"),
		SyncRateLimit:       v.GetFloat64("sync_rate_limit"),
		SyncRateBurst:       v.GetInt("sync_rate_burst"),
		MaxBodyBytes:        v.GetInt64("max_body_bytes"),
		TrustedProxies:      splitList(v.GetStringSlice("trusted_proxies")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList flattens comma separated entries, as TRUSTED_PROXIES arrives as one string.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required (env: DATABASE_URL)")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q: must be debug, info, warn or error", c.LogLevel)
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("trace_sample_ratio must be between 0 and 1")
	}
	if c.SyncRateLimit < 0 {
		return fmt.Errorf("sync_rate_limit must not be negative")
	}
	if c.SyncRateLimit > 0 && c.SyncRateBurst < 1 {
		return fmt.Errorf("sync_rate_burst must be at least 1 when sync_rate_limit is set")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	for _, p := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return fmt.Errorf("invalid trusted_proxies entry %q", p)
		}
	}
	if c.NotifyEnabled && c.NotifySubjectPrefix == "" {
		return fmt.Errorf("notify_subject_prefix is required when notify_enabled is set")
	}
	return nil
}
