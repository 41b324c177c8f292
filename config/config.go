// Package config defines the runtime configuration for mattd and the
// layering of defaults, config file, environment and flags.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"mattd/internal/errors"
	"mattd/util"
)

// Config holds every tuneable for one mattd process.
type Config struct {
	// ── Control channel ──────────────────────────────────────────────
	Port           int           `yaml:"port"`
	BindAddress    string        `yaml:"bind_address"` // empty binds all interfaces
	MaxSessions    int           `yaml:"max_sessions"`
	WelcomeMessage string        `yaml:"welcome_message"`
	RefusalMessage string        `yaml:"refusal_message"`
	RefusalHold    time.Duration `yaml:"refusal_hold"`

	// ── Lifecycle ────────────────────────────────────────────────────
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	GracePeriod       time.Duration `yaml:"grace_period"`
	StartupTimeout    time.Duration `yaml:"startup_timeout"`
	LockPath          string        `yaml:"lock_path"`
	WatchLock         bool          `yaml:"watch_lock"`
	WorkDir           string        `yaml:"work_dir"`
	Foreground        bool          `yaml:"foreground"`

	// ── Logging ──────────────────────────────────────────────────────
	LogPath     string `yaml:"log_path"`
	ServiceName string `yaml:"service_name"`

	// ── Client mode ──────────────────────────────────────────────────
	Connect     bool          `yaml:"-"`
	Host        string        `yaml:"host"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`

	// ── Invocation ───────────────────────────────────────────────────
	ConfigFile string `yaml:"-"`
	DryRun     bool   `yaml:"-"`
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Port:              DefaultPort,
		MaxSessions:       DefaultMaxSessions,
		WelcomeMessage:    DefaultWelcomeMessage,
		RefusalMessage:    DefaultRefusalMessage,
		RefusalHold:       DefaultRefusalHold,
		HeartbeatInterval: DefaultHeartbeatInterval,
		GracePeriod:       DefaultGracePeriod,
		StartupTimeout:    DefaultStartupTimeout,
		LockPath:          DefaultLockPath,
		WatchLock:         true,
		WorkDir:           DefaultWorkDir,
		LogPath:           DefaultLogPath,
		ServiceName:       DefaultServiceName,
		Host:              DefaultHost,
		ConnTimeout:       DefaultConnTimeout,
	}
}

// ListenAddress is the host:port the daemon binds.
func (c *Config) ListenAddress() string {
	return util.FormatAddr(c.BindAddress, c.Port)
}

// DialAddress is the host:port the client connects to.
func (c *Config) DialAddress() string {
	return util.FormatAddr(c.Host, c.Port)
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Failures are *errors.ConfigError values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &errors.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    fmt.Sprintf("the daemon listens on %d by default", DefaultPort),
		}
	}

	if c.Connect {
		if c.Host == "" {
			return &errors.ConfigError{
				Field:   "host",
				Message: "client mode requires a daemon host",
				Hint:    "use --host 127.0.0.1",
			}
		}
		return nil
	}

	if c.MaxSessions < 1 {
		return &errors.ConfigError{
			Field:   "max-sessions",
			Value:   c.MaxSessions,
			Message: "must be at least 1",
		}
	}

	for _, d := range []struct {
		field string
		v     time.Duration
	}{
		{"refusal-hold", c.RefusalHold},
		{"heartbeat", c.HeartbeatInterval},
		{"grace-period", c.GracePeriod},
		{"startup-timeout", c.StartupTimeout},
	} {
		if d.v < 0 {
			return &errors.ConfigError{Field: d.field, Value: d.v, Message: "must not be negative"}
		}
	}
	if c.HeartbeatInterval == 0 {
		return &errors.ConfigError{
			Field:   "heartbeat",
			Value:   c.HeartbeatInterval,
			Message: "must be positive",
			Hint:    "use a duration such as 10s",
		}
	}

	if c.LockPath == "" {
		return &errors.ConfigError{Field: "lock-file", Message: "required"}
	}
	if !filepath.IsAbs(c.LockPath) {
		return &errors.ConfigError{
			Field:   "lock-file",
			Value:   c.LockPath,
			Message: "must be an absolute path",
			Hint:    "the daemon changes its working directory to " + c.WorkDir,
		}
	}
	if c.LogPath == "" {
		return &errors.ConfigError{Field: "log-file", Message: "required"}
	}
	if !filepath.IsAbs(c.LogPath) {
		return &errors.ConfigError{
			Field:   "log-file",
			Value:   c.LogPath,
			Message: "must be an absolute path",
			Hint:    "the daemon changes its working directory to " + c.WorkDir,
		}
	}
	if c.ServiceName == "" {
		return &errors.ConfigError{Field: "service", Message: "required"}
	}
	if !filepath.IsAbs(c.WorkDir) {
		return &errors.ConfigError{Field: "work-dir", Value: c.WorkDir, Message: "must be an absolute path"}
	}

	return nil
}
