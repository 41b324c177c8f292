//go:build unix

package daemon

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"mattd/internal/errors"
)

const (
	// EnvDetached marks a process started by Spawn.
	EnvDetached = "MATTD_DETACHED"
	// EnvReadyFD names the inherited descriptor the child reports on.
	EnvReadyFD = "MATTD_READY_FD"

	readyFD    = 3 // first ExtraFiles slot
	readyToken = "ready"
)

// ReExec detaches by starting a fresh copy of the current executable
// in a new session.  Go cannot fork a running runtime, so the child
// re-runs startup from the top and recognises itself by EnvDetached.
type ReExec struct {
	Args    []string // arguments for the child, without argv[0]
	WorkDir string   // working directory the child settles in
}

// Detached reports whether EnvDetached is set.
func (r *ReExec) Detached() bool {
	return os.Getenv(EnvDetached) == "1"
}

// Spawn starts the child with no controlling terminal and waits for it
// to write the ready token on the inherited pipe.
func (r *ReExec) Spawn(ctx context.Context) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("readiness pipe: %w", err)
	}
	defer pr.Close()

	cmd := exec.Command(exe, r.Args...)
	cmd.Dir = r.workDir()
	cmd.Env = append(os.Environ(),
		EnvDetached+"=1",
		fmt.Sprintf("%s=%d", EnvReadyFD, readyFD),
	)
	// Nil streams are connected to the null device.
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	cmd.ExtraFiles = []*os.File{pw}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		pw.Close()
		return fmt.Errorf("start background process: %w", err)
	}
	pw.Close() // only the child holds the write end now

	// Reap the child if it dies during startup; once it is ready it
	// outlives us and init adopts it.
	exited := make(chan struct{})
	go func() {
		cmd.Wait() //nolint:errcheck
		close(exited)
	}()

	got := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(pr).ReadString('\n')
		got <- strings.TrimSpace(line)
	}()

	select {
	case token := <-got:
		if token != readyToken {
			<-exited
			return errors.ErrChildFailed
		}
		return nil
	case <-ctx.Done():
		cmd.Process.Kill() //nolint:errcheck
		return errors.ErrStartupTimeout
	}
}

// Settle clears the file mode mask, moves to WorkDir and points the
// standard streams at the null device.
func (r *ReExec) Settle() error {
	unix.Umask(0)

	if err := os.Chdir(r.workDir()); err != nil {
		return fmt.Errorf("chdir %s: %w", r.workDir(), err)
	}

	null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer null.Close()
	for _, fd := range []int{0, 1, 2} {
		if err := unix.Dup2(int(null.Fd()), fd); err != nil {
			return fmt.Errorf("redirect fd %d: %w", fd, err)
		}
	}
	return nil
}

// Ready writes the ready token and closes the pipe.  Outside a spawned
// child it does nothing.
func (r *ReExec) Ready() error {
	if os.Getenv(EnvReadyFD) == "" {
		return nil
	}
	f := os.NewFile(uintptr(readyFD), "ready")
	if f == nil {
		return nil
	}
	defer f.Close()
	if _, err := f.WriteString(readyToken + "\n"); err != nil {
		return fmt.Errorf("report ready: %w", err)
	}
	return nil
}

func (r *ReExec) workDir() string {
	if r.WorkDir == "" {
		return "/"
	}
	return r.WorkDir
}
