package state

import (
	"sync"
	"testing"
)

func TestState_StopOnce(t *testing.T) {
	s := New()
	if !s.Running() {
		t.Fatal("new state should be running")
	}

	if !s.Stop("quit command") {
		t.Error("first Stop should report true")
	}
	if s.Stop("SIGTERM") {
		t.Error("second Stop should report false")
	}
	if s.Running() {
		t.Error("running must stay false")
	}
	if got := s.Reason(); got != "quit command" {
		t.Errorf("reason = %q, want the first one", got)
	}

	select {
	case <-s.Done():
	default:
		t.Error("Done should be closed after Stop")
	}
}

func TestState_ConcurrentStop(t *testing.T) {
	s := New()
	var wins sync.WaitGroup
	var mu sync.Mutex
	firsts := 0

	for i := 0; i < 64; i++ {
		wins.Add(1)
		go func() {
			defer wins.Done()
			if s.Stop("race") {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}()
	}
	wins.Wait()

	if firsts != 1 {
		t.Errorf("Stop reported first %d times, want 1", firsts)
	}
}

func TestState_AdmitCap(t *testing.T) {
	s := New()
	for i := 1; i <= 3; i++ {
		n, ok := s.TryAdmit(3)
		if !ok || n != i {
			t.Fatalf("admit %d: got (%d,%v)", i, n, ok)
		}
	}
	if n, ok := s.TryAdmit(3); ok || n != 3 {
		t.Errorf("admit over cap: got (%d,%v), want (3,false)", n, ok)
	}

	if n := s.Leave(); n != 2 {
		t.Errorf("Leave = %d, want 2", n)
	}
	if _, ok := s.TryAdmit(3); !ok {
		t.Error("slot freed by Leave should be admitted")
	}
}

func TestState_LeaveNeverNegative(t *testing.T) {
	s := New()
	if n := s.Leave(); n != 0 {
		t.Errorf("Leave on empty = %d, want 0", n)
	}
	if s.Active() != 0 {
		t.Errorf("Active = %d, want 0", s.Active())
	}
}

func TestState_NoAdmitAfterStop(t *testing.T) {
	s := New()
	s.Stop("quit command")
	if _, ok := s.TryAdmit(3); ok {
		t.Error("must not admit once stopped")
	}
}

// TestState_ConcurrentAdmission races many admitters against a small
// cap and checks the count never exceeds it or goes negative.
func TestState_ConcurrentAdmission(t *testing.T) {
	s := New()
	const limit = 3

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if n, ok := s.TryAdmit(limit); ok {
					if n > limit {
						t.Errorf("admitted with count %d > %d", n, limit)
					}
					if left := s.Leave(); left < 0 {
						t.Errorf("negative count %d", left)
					}
				}
			}
		}()
	}
	wg.Wait()

	if s.Peak() > limit {
		t.Errorf("peak %d exceeds cap %d", s.Peak(), limit)
	}
	if s.Active() != 0 {
		t.Errorf("active = %d after all sessions left", s.Active())
	}
}
