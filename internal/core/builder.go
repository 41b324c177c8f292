package core

import (
	"mattd/config"
	"mattd/internal/client"
	"mattd/internal/daemon"
	"mattd/internal/listener"
	"mattd/internal/metrics"
	"mattd/internal/state"
	"mattd/internal/transport"
	"mattd/util"
)

// Build constructs the Mode selected by cfg.  childArgs are the
// arguments a detaching daemon passes to its background copy.
func Build(cfg *config.Config, childArgs []string, logger *util.Logger) (Mode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Connect {
		return buildClient(cfg), nil
	}
	return buildDaemon(cfg, childArgs, logger), nil
}

// ── mode builders ────────────────────────────────────────────────────

func buildDaemon(cfg *config.Config, childArgs []string, logger *util.Logger) *daemon.Supervisor {
	st := state.New()
	m := metrics.New()

	s := &daemon.Supervisor{
		LockPath:          cfg.LockPath,
		WatchLock:         cfg.WatchLock,
		HeartbeatInterval: cfg.HeartbeatInterval,
		GracePeriod:       cfg.GracePeriod,
		StartupTimeout:    cfg.StartupTimeout,
		Listener: &listener.Listener{
			Address:        cfg.ListenAddress(),
			MaxSessions:    cfg.MaxSessions,
			WelcomeMessage: cfg.WelcomeMessage,
			RefusalMessage: cfg.RefusalMessage,
			RefusalHold:    cfg.RefusalHold,
			Logger:         logger,
			Metrics:        m,
			State:          st,
		},
		Logger:  logger,
		Metrics: m,
		State:   st,
	}
	if !cfg.Foreground {
		s.Detacher = &daemon.ReExec{Args: childArgs, WorkDir: cfg.WorkDir}
	}
	return s
}

func buildClient(cfg *config.Config) *client.Client {
	return &client.Client{
		Dialer:         &transport.TCPDialer{Timeout: cfg.ConnTimeout},
		Address:        cfg.DialAddress(),
		RefusalMessage: cfg.RefusalMessage,
		GreetTimeout:   cfg.ConnTimeout,
	}
}
