package metrics

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestCollector_Sessions(t *testing.T) {
	c := New()

	c.SessionAdmitted()
	c.SessionAdmitted()
	c.SessionRefused()
	c.SessionClosed()

	if c.SessionsAdmitted() != 2 {
		t.Errorf("admitted = %d, want 2", c.SessionsAdmitted())
	}
	if c.SessionsRefused() != 1 {
		t.Errorf("refused = %d, want 1", c.SessionsRefused())
	}
	if got := c.Snapshot().SessionsClosed; got != 1 {
		t.Errorf("closed = %d, want 1", got)
	}
}

func TestCollector_Traffic(t *testing.T) {
	c := New()

	c.MessageReceived()
	c.BytesReceived(5)
	c.MessageReceived()
	c.BytesReceived(100)

	if c.Messages() != 2 {
		t.Errorf("messages = %d, want 2", c.Messages())
	}
	if c.TotalBytesIn() != 105 {
		t.Errorf("bytes in = %d, want 105", c.TotalBytesIn())
	}
}

func TestCollector_Lifecycle(t *testing.T) {
	c := New()

	c.Heartbeat()
	c.Heartbeat()
	c.Heartbeat()
	c.SignalReceived()

	if c.Heartbeats() != 3 {
		t.Errorf("heartbeats = %d, want 3", c.Heartbeats())
	}
	if c.Signals() != 1 {
		t.Errorf("signals = %d, want 1", c.Signals())
	}
}

func TestCollector_Errors(t *testing.T) {
	c := New()

	c.RecordError("first error")
	c.RecordError("second error")

	if c.ErrorCount() != 2 {
		t.Errorf("errors = %d, want 2", c.ErrorCount())
	}
	snap := c.Snapshot()
	if snap.LastErrorMessage != "second error" {
		t.Errorf("last error = %q, want %q", snap.LastErrorMessage, "second error")
	}
	if snap.LastError == "" {
		t.Error("expected last error timestamp")
	}
}

func TestCollector_AcceptErrors(t *testing.T) {
	c := New()

	c.AcceptError(true)
	c.AcceptError(true)
	c.AcceptError(false)

	transient, fatal := c.AcceptErrors()
	if transient != 2 || fatal != 1 {
		t.Errorf("transient=%d fatal=%d, want 2 and 1", transient, fatal)
	}
	snap := c.Snapshot()
	if snap.AcceptTransient != 2 || snap.AcceptFatal != 1 {
		t.Errorf("snapshot %+v", snap)
	}
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.SessionAdmitted()
	c.BytesReceived(42)

	out := c.JSON()
	if strings.Contains(out, "\n") {
		t.Errorf("JSON must be a single line, got %q", out)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if snap.SessionsAdmitted != 1 || snap.BytesIn != 42 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	c.SessionAdmitted()
	c.SessionRefused()
	c.SessionClosed()
	c.MessageReceived()
	c.BytesReceived(1)
	c.Heartbeat()
	c.SignalReceived()
	c.RecordError("x")
	c.AcceptError(true)

	if c.SessionsAdmitted() != 0 || c.ErrorCount() != 0 || c.Heartbeats() != 0 {
		t.Error("nil collector should report zeros")
	}
	if c.JSON() == "" {
		t.Error("nil collector should still marshal an empty snapshot")
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.MessageReceived()
				c.BytesReceived(1)
			}
		}()
	}
	wg.Wait()

	if c.Messages() != 5000 || c.TotalBytesIn() != 5000 {
		t.Errorf("messages=%d bytes=%d, want 5000 each", c.Messages(), c.TotalBytesIn())
	}
}
