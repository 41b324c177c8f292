package daemon

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// infoRepeatWindow suppresses repeats of the same informational signal.
// The Go runtime preempts goroutines with SIGURG, which would otherwise
// flood the log.
const infoRepeatWindow = time.Second

// installSignals routes termination-class signals to Stop and logs
// informational ones.  The returned function uninstalls the handlers
// and waits for the pump goroutine.
func (s *Supervisor) installSignals() func() {
	ch := make(chan os.Signal, 8)
	watched := append(append([]os.Signal{}, terminationSignals...), infoSignals...)
	signal.Notify(ch, watched...)

	terminate := make(map[os.Signal]bool, len(terminationSignals))
	for _, sig := range terminationSignals {
		terminate[sig] = true
	}

	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		lastSeen := make(map[os.Signal]time.Time)
		for {
			select {
			case sig := <-ch:
				s.Metrics.SignalReceived()
				if terminate[sig] {
					s.Logger.Info("Signal received: %d (%v), stopping daemon...", signum(sig), sig)
					s.State.Stop("signal " + sig.String())
					continue
				}
				now := time.Now()
				if now.Sub(lastSeen[sig]) < infoRepeatWindow {
					continue
				}
				lastSeen[sig] = now
				s.Logger.Info("Signal received: %d (%v)", signum(sig), sig)
			case <-quit:
				return
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(quit)
		wg.Wait()
	}
}

func signum(sig os.Signal) int {
	if n, ok := sig.(syscall.Signal); ok {
		return int(n)
	}
	return -1
}
