package config

// loader.go - configuration loading from a YAML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables
//   3. Config file
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFile overlays the YAML document at path onto cfg.  Keys absent
// from the file keep their current value.  Durations are written the
// way time.ParseDuration reads them: "10s", "500ms".
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the MATTD_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive); anything else set
// explicitly is false.  Durations accept "10s" or a bare number of
// seconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Unparseable values are
// reported; the rest still apply.
func LoadFromEnv(cfg *Config) error {
	var bad []string

	if v, ok := envInt("MATTD_PORT", &bad); ok {
		cfg.Port = v
	}
	if v := os.Getenv("MATTD_BIND"); v != "" {
		cfg.BindAddress = v
	}
	if v, ok := envInt("MATTD_MAX_SESSIONS", &bad); ok {
		cfg.MaxSessions = v
	}
	if v := os.Getenv("MATTD_WELCOME"); v != "" {
		cfg.WelcomeMessage = v
	}
	if v := os.Getenv("MATTD_REFUSAL"); v != "" {
		cfg.RefusalMessage = v
	}
	if v, ok := envDuration("MATTD_REFUSAL_HOLD", &bad); ok {
		cfg.RefusalHold = v
	}
	if v, ok := envDuration("MATTD_HEARTBEAT", &bad); ok {
		cfg.HeartbeatInterval = v
	}
	if v, ok := envDuration("MATTD_GRACE_PERIOD", &bad); ok {
		cfg.GracePeriod = v
	}
	if v, ok := envDuration("MATTD_STARTUP_TIMEOUT", &bad); ok {
		cfg.StartupTimeout = v
	}
	if v := os.Getenv("MATTD_LOCK_FILE"); v != "" {
		cfg.LockPath = v
	}
	if v, ok := envBool("MATTD_WATCH_LOCK"); ok {
		cfg.WatchLock = v
	}
	if v := os.Getenv("MATTD_LOG_FILE"); v != "" {
		cfg.LogPath = v
	}
	if v := os.Getenv("MATTD_SERVICE"); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv("MATTD_WORK_DIR"); v != "" {
		cfg.WorkDir = v
	}
	if v, ok := envBool("MATTD_FOREGROUND"); ok {
		cfg.Foreground = v
	}
	if v := os.Getenv("MATTD_HOST"); v != "" {
		cfg.Host = v
	}

	if len(bad) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(bad, ", "))
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string, bad *[]string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*bad = append(*bad, key+"="+v)
		return 0, false
	}
	return n, true
}

func envBool(key string) (bool, bool) {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return false, false
	}
	return v == "1" || v == "true" || v == "yes", true
}

func envDuration(key string, bad *[]string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return secondsDuration(n), true
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*bad = append(*bad, key+"="+v)
		return 0, false
	}
	return d, true
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
