package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Host string
	Port int

	Env      string // "dev" | "prod"
	LogLevel string // optional zap level override

	// PublicBaseURL prefixes stream locators handed back to devices.
	// Empty means derive it from the inbound request.
	PublicBaseURL string

	// Liveness
	OnlineWindow   time.Duration
	EvictionWindow time.Duration
	SweepInterval  time.Duration

	// Upstream relay
	StreamTimeout   time.Duration
	CaptureTimeout  time.Duration
	CaptureMaxBytes int64
	MaxBodyBytes    int64

	ShutdownGrace time.Duration

	GRPCAddr string // empty disables the gRPC health server

	// Relay session log
	DBPath               string // empty keeps the log in memory
	SessionRetentionDays int    // 0 = keep forever
	PruneIntervalHours   int
}

// defaults mirrors the environment variable names one to one.
var defaults = map[string]any{
	"HOST":                   "0.0.0.0",
	"PORT":                   3000,
	"ENV":                    "dev",
	"LOG_LEVEL":              "",
	"PUBLIC_BASE_URL":        "",
	"ONLINE_WINDOW_MS":       120000,
	"EVICTION_WINDOW_MS":     600000,
	"SWEEP_INTERVAL_MS":      60000,
	"STREAM_TIMEOUT_MS":      30000,
	"CAPTURE_TIMEOUT_MS":     10000,
	"CAPTURE_MAX_BYTES":      8 << 20,
	"MAX_BODY_BYTES":         50 << 20,
	"SHUTDOWN_GRACE_MS":      10000,
	"GRPC_ADDR":              "",
	"DB_PATH":                "",
	"SESSION_RETENTION_DAYS": 7,
	"PRUNE_INTERVAL_HOURS":   6,
}

// NewViper returns a viper instance bound to the process environment with
// every default registered.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	v.AutomaticEnv()
	return v
}

// FromEnv loads and validates the configuration from the environment.
func FromEnv() (Config, error) {
	return Load(NewViper())
}

// Load reads the configuration out of v and validates it.
func Load(v *viper.Viper) (Config, error) {
	env := strings.ToLower(strings.TrimSpace(v.GetString("ENV")))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	cfg := Config{
		Host:          strings.TrimSpace(v.GetString("HOST")),
		Port:          v.GetInt("PORT"),
		Env:           env,
		LogLevel:      strings.TrimSpace(v.GetString("LOG_LEVEL")),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(v.GetString("PUBLIC_BASE_URL")), "/"),

		OnlineWindow:   millis(v, "ONLINE_WINDOW_MS"),
		EvictionWindow: millis(v, "EVICTION_WINDOW_MS"),
		SweepInterval:  millis(v, "SWEEP_INTERVAL_MS"),

		StreamTimeout:   millis(v, "STREAM_TIMEOUT_MS"),
		CaptureTimeout:  millis(v, "CAPTURE_TIMEOUT_MS"),
		CaptureMaxBytes: v.GetInt64("CAPTURE_MAX_BYTES"),
		MaxBodyBytes:    v.GetInt64("MAX_BODY_BYTES"),

		ShutdownGrace: millis(v, "SHUTDOWN_GRACE_MS"),

		GRPCAddr: strings.TrimSpace(v.GetString("GRPC_ADDR")),

		DBPath:               strings.TrimSpace(v.GetString("DB_PATH")),
		SessionRetentionDays: v.GetInt("SESSION_RETENTION_DAYS"),
		PruneIntervalHours:   v.GetInt("PRUNE_INTERVAL_HOURS"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the cross-field constraints the services rely on.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.OnlineWindow <= 0 {
		return fmt.Errorf("ONLINE_WINDOW_MS must be positive")
	}
	if c.EvictionWindow <= c.OnlineWindow {
		return fmt.Errorf("EVICTION_WINDOW_MS (%s) must exceed ONLINE_WINDOW_MS (%s)",
			c.EvictionWindow, c.OnlineWindow)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_MS must be positive")
	}
	if c.StreamTimeout <= 0 || c.CaptureTimeout <= 0 {
		return fmt.Errorf("upstream timeouts must be positive")
	}
	if c.CaptureMaxBytes <= 0 || c.MaxBodyBytes <= 0 {
		return fmt.Errorf("body limits must be positive")
	}
	if c.SessionRetentionDays < 0 || c.PruneIntervalHours < 0 {
		return fmt.Errorf("session retention settings must not be negative")
	}
	return nil
}

// HTTPAddr returns the listen address for the HTTP server.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func millis(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt64(key)) * time.Millisecond
}
