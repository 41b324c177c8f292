// Package cmd wires up the CLI flags and dispatches to the daemon or
// the client.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"mattd/config"
	"mattd/internal/core"
	"mattd/internal/daemon"
	"mattd/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X mattd/cmd.version=1.1.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Output streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout //nolint:gochecknoglobals
	stderr io.Writer = os.Stderr //nolint:gochecknoglobals
)

// invocation is one parsed command line.
type invocation struct {
	cfg         *config.Config
	fs          *flag.FlagSet
	showVersion bool
	showHelp    bool
}

// Execute parses args and runs the daemon, or the client with
// --connect.
func Execute(ctx context.Context, args []string) error {
	inv, err := parse(args)
	if err != nil {
		return err
	}
	cfg := inv.cfg

	if inv.showHelp {
		printUsage(inv.fs)
		return nil
	}
	if inv.showVersion {
		fmt.Fprintf(stdout, "mattd %s\n", version)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DryRun {
		return printConfig(cfg)
	}

	if cfg.Connect {
		ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
		mode, err := core.Build(cfg, nil, nil)
		if err != nil {
			return err
		}
		return mode.Run(ctx)
	}

	logger, err := util.OpenLogger(cfg.LogPath, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("log unavailable: %w", err)
	}
	defer logger.Close()
	logger.SetErrorSink(stderr)
	// Until the process detaches, whatever it logs is also shown.
	if !(&daemon.ReExec{}).Detached() {
		logger.SetMirror(stderr)
	}

	mode, err := core.Build(cfg, childArgs(args, cfg), logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// parse layers defaults, config file, environment and explicitly set
// flags, in that order.
func parse(args []string) (*invocation, error) {
	inv := &invocation{cfg: config.Default()}
	fv := config.Default() // flag targets; only changed flags are applied
	fs := flag.NewFlagSet("mattd", flag.ContinueOnError)
	inv.fs = fs

	// ── control channel ──────────────────────────────────────────
	fs.IntVarP(&fv.Port, "port", "p", fv.Port, "Control-channel port")
	fs.StringVarP(&fv.BindAddress, "bind", "b", fv.BindAddress, "Bind address (default all interfaces)")
	fs.IntVarP(&fv.MaxSessions, "max-sessions", "m", fv.MaxSessions, "Concurrent session cap")
	fs.StringVar(&fv.WelcomeMessage, "welcome", fv.WelcomeMessage, "Greeting for admitted clients")
	fs.StringVar(&fv.RefusalMessage, "refusal", fv.RefusalMessage, "Greeting for clients over the cap")
	fs.DurationVar(&fv.RefusalHold, "refusal-hold", fv.RefusalHold, "How long a refused client is held")

	// ── lifecycle ────────────────────────────────────────────────
	fs.DurationVar(&fv.HeartbeatInterval, "heartbeat", fv.HeartbeatInterval, "Heartbeat interval")
	fs.DurationVar(&fv.GracePeriod, "grace-period", fv.GracePeriod, "Bound on draining sessions at shutdown")
	fs.DurationVar(&fv.StartupTimeout, "startup-timeout", fv.StartupTimeout, "How long to wait for the background process")
	fs.StringVar(&fv.LockPath, "lock-file", fv.LockPath, "Single-instance lock marker")
	fs.BoolVar(&fv.WatchLock, "watch-lock", fv.WatchLock, "Stop when the lock marker is removed")
	fs.StringVar(&fv.WorkDir, "work-dir", fv.WorkDir, "Working directory after detaching")
	fs.BoolVarP(&fv.Foreground, "foreground", "f", fv.Foreground, "Do not detach from the terminal")

	// ── logging ──────────────────────────────────────────────────
	fs.StringVar(&fv.LogPath, "log-file", fv.LogPath, "Log file")
	fs.StringVar(&fv.ServiceName, "service", fv.ServiceName, "Service name stamped on log entries")

	// ── client ───────────────────────────────────────────────────
	fs.BoolVarP(&fv.Connect, "connect", "c", false, "Connect to a running daemon")
	fs.StringVarP(&fv.Host, "host", "H", fv.Host, "Daemon host for --connect")
	fs.DurationVar(&fv.ConnTimeout, "conn-timeout", fv.ConnTimeout, "Client dial timeout")

	// ── invocation ───────────────────────────────────────────────
	fs.StringVarP(&fv.ConfigFile, "config", "C", "", "YAML config file")
	fs.BoolVar(&fv.DryRun, "dry-run", false, "Validate and print the effective config, then exit")
	fs.BoolVar(&inv.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&inv.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q (use --help for usage)", fs.Arg(0))
	}

	cfg := inv.cfg
	if fv.ConfigFile != "" {
		if err := config.LoadFile(fv.ConfigFile, cfg); err != nil {
			return nil, err
		}
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		if apply, ok := flagFields[f.Name]; ok {
			apply(cfg, fv)
		}
	})
	return inv, nil
}

// flagFields copies one flag's value from the flag targets into the
// effective config.
var flagFields = map[string]func(cfg, fv *config.Config){ //nolint:gochecknoglobals
	"port":            func(c, f *config.Config) { c.Port = f.Port },
	"bind":            func(c, f *config.Config) { c.BindAddress = f.BindAddress },
	"max-sessions":    func(c, f *config.Config) { c.MaxSessions = f.MaxSessions },
	"welcome":         func(c, f *config.Config) { c.WelcomeMessage = f.WelcomeMessage },
	"refusal":         func(c, f *config.Config) { c.RefusalMessage = f.RefusalMessage },
	"refusal-hold":    func(c, f *config.Config) { c.RefusalHold = f.RefusalHold },
	"heartbeat":       func(c, f *config.Config) { c.HeartbeatInterval = f.HeartbeatInterval },
	"grace-period":    func(c, f *config.Config) { c.GracePeriod = f.GracePeriod },
	"startup-timeout": func(c, f *config.Config) { c.StartupTimeout = f.StartupTimeout },
	"lock-file":       func(c, f *config.Config) { c.LockPath = f.LockPath },
	"watch-lock":      func(c, f *config.Config) { c.WatchLock = f.WatchLock },
	"work-dir":        func(c, f *config.Config) { c.WorkDir = f.WorkDir },
	"foreground":      func(c, f *config.Config) { c.Foreground = f.Foreground },
	"log-file":        func(c, f *config.Config) { c.LogPath = f.LogPath },
	"service":         func(c, f *config.Config) { c.ServiceName = f.ServiceName },
	"connect":         func(c, f *config.Config) { c.Connect = f.Connect },
	"host":            func(c, f *config.Config) { c.Host = f.Host },
	"conn-timeout":    func(c, f *config.Config) { c.ConnTimeout = f.ConnTimeout },
	"config":          func(c, f *config.Config) { c.ConfigFile = f.ConfigFile },
	"dry-run":         func(c, f *config.Config) { c.DryRun = f.DryRun },
}

// ── helpers ──────────────────────────────────────────────────────────

// childArgs are the arguments for the background copy.  It starts in
// the work dir, so a relative config path is pinned first.
func childArgs(args []string, cfg *config.Config) []string {
	out := append([]string(nil), args...)
	if cfg.ConfigFile != "" && !filepath.IsAbs(cfg.ConfigFile) {
		if abs, err := filepath.Abs(cfg.ConfigFile); err == nil {
			out = append(out, "--config", abs)
		}
	}
	return out
}

func printConfig(cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	_, err = stdout.Write(data)
	return err
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stderr, `mattd - Matt_daemon v%s

A background service that logs what its clients send and stops on "quit".

Usage:
  mattd [options]                       Start the daemon
  mattd -f [options]                    Run in the foreground
  mattd -c [-H host] [-p port]          Connect to a running daemon

Options:
`, version)
	fs.SetOutput(stderr)
	fs.PrintDefaults()
	fmt.Fprintf(stderr, `
Examples:
  mattd                                 Detach and listen on 4242
  mattd -f --lock-file /tmp/m.lock --log-file /tmp/m.log
  mattd --dry-run -C /etc/mattd.yaml    Show the effective config
  echo quit | mattd -c                  Stop the daemon
`)
}
