package cmd

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"mattd/config"
	"mattd/internal/errors"
	"mattd/util"
)

// capture redirects the package output streams for one test.
func capture(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	oldOut, oldErr := stdout, stderr
	stdout, stderr = out, errOut
	t.Cleanup(func() { stdout, stderr = oldOut, oldErr })
	return out, errOut
}

func TestExecute_Version(t *testing.T) {
	out, _ := capture(t)
	if err := Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "mattd ") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestExecute_Help(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {"-h"}} {
		t.Run(args[0], func(t *testing.T) {
			_, errOut := capture(t)
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(errOut.String(), "--lock-file") {
				t.Errorf("usage should list flags:\n%s", errOut.String())
			}
		})
	}
}

// TestExecute_DryRun prints the effective config as YAML.
func TestExecute_DryRun(t *testing.T) {
	out, _ := capture(t)
	err := Execute(context.Background(), []string{"--dry-run", "-p", "4343", "--heartbeat", "3s"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"port: 4343", "heartbeat_interval: 3s", "max_sessions: 3"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("dry-run output missing %q:\n%s", want, out.String())
		}
	}
}

func TestExecute_DryRunInvalid(t *testing.T) {
	capture(t)
	err := Execute(context.Background(), []string{"--dry-run", "--max-sessions", "0"})
	var ce *errors.ConfigError
	if !errors.As(err, &ce) || ce.Field != "max-sessions" {
		t.Fatalf("expected a max-sessions ConfigError, got %v", err)
	}
}

func TestExecute_InvalidFlags(t *testing.T) {
	capture(t)
	if err := Execute(context.Background(), []string{"--nonexistent-flag"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestExecute_PositionalRejected(t *testing.T) {
	capture(t)
	err := Execute(context.Background(), []string{"localhost"})
	if err == nil || !strings.Contains(err.Error(), "unexpected argument") {
		t.Fatalf("got %v", err)
	}
}

func TestExecute_LogUnavailable(t *testing.T) {
	capture(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	err := Execute(context.Background(), []string{
		"-f", "--log-file", filepath.Join(blocker, "x.log"),
		"--lock-file", filepath.Join(t.TempDir(), "x.lock"),
	})
	if err == nil || !strings.Contains(err.Error(), "log unavailable") {
		t.Fatalf("got %v", err)
	}
}

// TestParse_Precedence: defaults < file < env < explicit flags.
func TestParse_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mattd.yaml")
	doc := "port: 5000\nmax_sessions: 5\nservice_name: from-file\nheartbeat_interval: 30s\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MATTD_MAX_SESSIONS", "6")
	t.Setenv("MATTD_SERVICE", "from-env")

	inv, err := parse([]string{"-C", path, "--service", "from-flag"})
	if err != nil {
		t.Fatal(err)
	}
	cfg := inv.cfg

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"file over default", cfg.Port, 5000},
		{"env over file", cfg.MaxSessions, 6},
		{"flag over env", cfg.ServiceName, "from-flag"},
		{"file duration", cfg.HeartbeatInterval, 30 * time.Second},
		{"untouched default", cfg.LockPath, config.DefaultLockPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

// TestParse_UnsetFlagKeepsEnv: a flag left at its default must not
// clobber what the environment set.
func TestParse_UnsetFlagKeepsEnv(t *testing.T) {
	t.Setenv("MATTD_PORT", "4500")
	inv, err := parse([]string{"-f"})
	if err != nil {
		t.Fatal(err)
	}
	if inv.cfg.Port != 4500 || !inv.cfg.Foreground {
		t.Errorf("Port=%d Foreground=%v", inv.cfg.Port, inv.cfg.Foreground)
	}
}

func TestParse_MissingConfigFile(t *testing.T) {
	if _, err := parse([]string{"-C", filepath.Join(t.TempDir(), "absent.yaml")}); err == nil {
		t.Fatal("expected error")
	}
}

func TestChildArgs(t *testing.T) {
	cfg := config.Default()
	args := []string{"-p", "4242"}
	if got := childArgs(args, cfg); strings.Join(got, " ") != "-p 4242" {
		t.Errorf("childArgs = %v", got)
	}

	cfg.ConfigFile = "mattd.yaml"
	got := childArgs(args, cfg)
	if len(got) != 4 || got[2] != "--config" || !filepath.IsAbs(got[3]) {
		t.Errorf("relative config not pinned: %v", got)
	}
	if len(args) != 2 {
		t.Error("childArgs must not modify its input")
	}
}

// TestExecute_ForegroundQuit runs the whole daemon in the foreground
// and stops it from a client.
func TestExecute_ForegroundQuit(t *testing.T) {
	capture(t)
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	logPath := filepath.Join(dir, "matt_daemon.log")
	lockPath := filepath.Join(dir, "matt_daemon.lock")

	errCh := make(chan error, 1)
	go func() {
		errCh <- Execute(context.Background(), []string{
			"-f", "-b", "127.0.0.1", "-p", strconv.Itoa(port),
			"--lock-file", lockPath, "--log-file", logPath,
			"--heartbeat", "50ms",
		})
	}()

	addr := util.FormatAddr("127.0.0.1", port)
	var conn net.Conn
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn, err = net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("daemon never listened: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	defer conn.Close()

	greeting, _ := bufio.NewReader(conn).ReadString('\n')
	if greeting != config.DefaultWelcomeMessage {
		t.Fatalf("greeting = %q", greeting)
	}
	conn.Write([]byte("hello\nquit\n")) //nolint:errcheck

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop on quit")
	}

	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("lock file should be removed")
	}
	f, err := os.Open(logPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	for _, want := range []string{
		"[ INFO ] - Matt_daemon: Daemon started successfully",
		"[ LOG ] - Matt_daemon: Received message: hello",
		"[ INFO ] - Matt_daemon: Received quit command. Shutting down daemon.",
		"[ INFO ] - Matt_daemon: Daemon stopped",
	} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("log missing %q:\n%s", want, data)
		}
	}
}
