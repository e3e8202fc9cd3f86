package warning

import (
	"context"
	"testing"
	"time"

	"github.com/sightveil/platform/internal/detect"
)

func TestSessionLifecycle(t *testing.T) {
	m := New(Config{RequiredSeconds: 15})

	m.Observe(detect.BlockAndWarn)
	if m.State() != Active {
		t.Fatalf("state = %v after observe, want ACTIVE", m.State())
	}
	s, ok := m.Snapshot()
	if !ok || s.Remaining != 15 {
		t.Fatalf("session remaining = %d (ok=%v), want 15", s.Remaining, ok)
	}

	// Continue must be refused at every point with time remaining.
	for i := 0; i < 15; i++ {
		if m.TryContinue() {
			t.Fatalf("tryContinue succeeded with %d ticks elapsed", i)
		}
		m.Tick()
	}

	if m.State() != Dismissible {
		t.Fatalf("state = %v after 15 ticks, want DISMISSIBLE", m.State())
	}
	if !m.TryContinue() {
		t.Fatal("tryContinue refused in DISMISSIBLE state")
	}
	if m.State() != Closed {
		t.Errorf("state = %v after continue, want CLOSED", m.State())
	}
}

func TestDismissibleBounds(t *testing.T) {
	m := New(Config{RequiredSeconds: 15})
	m.Observe(detect.FullScreenBlur)

	for i := 0; i < 14; i++ {
		m.Tick()
	}
	if m.State() != Active {
		t.Fatalf("dismissible after only 14 ticks")
	}

	m.Tick()
	if m.State() != Dismissible {
		t.Fatalf("not dismissible after 15 ticks")
	}

	// Monotonic: extra ticks never revert dismissibility.
	m.Tick()
	if m.State() != Dismissible {
		t.Error("dismissibility reverted on a later tick")
	}
}

func TestNoRestartOnFluctuation(t *testing.T) {
	m := New(Config{RequiredSeconds: 15})
	m.Observe(detect.BlockAndWarn)

	first, _ := m.Snapshot()
	m.Tick()
	m.Tick()

	m.Observe(detect.FullScreenBlur)
	s, ok := m.Snapshot()
	if !ok {
		t.Fatal("session lost after repeated observation")
	}
	if s.Remaining != 13 {
		t.Errorf("remaining = %d, want 13 (countdown must not restart)", s.Remaining)
	}
	if !s.StartedAt.Equal(first.StartedAt) {
		t.Error("session restarted by severity fluctuation")
	}
}

func TestRepeatOffenseExtension(t *testing.T) {
	m := New(Config{RequiredSeconds: 15, RepeatExtension: 10, RepeatWindow: time.Minute})

	m.Observe(detect.BlockAndWarn)
	m.Close()

	m.Observe(detect.BlockAndWarn)
	s, ok := m.Snapshot()
	if !ok {
		t.Fatal("no session after second observation")
	}
	if s.RequiredSeconds != 25 {
		t.Errorf("required = %d, want 25 (15 + repeat extension 10)", s.RequiredSeconds)
	}
}

func TestRepeatWindowExpiry(t *testing.T) {
	m := New(Config{RequiredSeconds: 15, RepeatExtension: 10, RepeatWindow: time.Millisecond})

	m.Observe(detect.BlockAndWarn)
	m.Close()
	time.Sleep(5 * time.Millisecond)

	m.Observe(detect.BlockAndWarn)
	s, _ := m.Snapshot()
	if s.RequiredSeconds != 15 {
		t.Errorf("required = %d, want 15 (outside repeat window)", s.RequiredSeconds)
	}
}

func TestCloseFromActive(t *testing.T) {
	m := New(Config{RequiredSeconds: 15})
	m.Observe(detect.BlockAndWarn)

	m.Close()
	if m.State() != Closed {
		t.Fatalf("state = %v after close, want CLOSED", m.State())
	}
	if _, ok := m.Snapshot(); ok {
		t.Error("session survived close")
	}

	// A fresh session may start after closing.
	m.Observe(detect.FullScreenBlur)
	if m.State() != Active {
		t.Errorf("state = %v, want ACTIVE for new session", m.State())
	}
}

func TestObserveIgnoresLowSeverity(t *testing.T) {
	m := New(Config{RequiredSeconds: 15})

	m.Observe(detect.NoAction)
	m.Observe(detect.SelectiveBlur)
	if m.State() != Idle {
		t.Errorf("state = %v, want IDLE for low-severity actions", m.State())
	}
}

func TestListenersNotified(t *testing.T) {
	m := New(Config{RequiredSeconds: 2})

	var events []Event
	m.Subscribe(func(ev Event) { events = append(events, ev) })

	m.Observe(detect.BlockAndWarn)
	m.Tick()
	m.Tick()
	m.TryContinue()

	want := []State{Active, Active, Dismissible, Closed}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.State != want[i] {
			t.Errorf("event %d state = %v, want %v", i, ev.State, want[i])
		}
	}
}

func TestTickerStartStop(t *testing.T) {
	m := New(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	m.Stop()
	m.Stop() // idempotent
}
