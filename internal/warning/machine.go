// Package warning enforces the mandatory reflection period behind
// full-screen warnings: a small state machine driven by a dedicated
// one-second ticker, independent of the detection cadence.
package warning

import (
	"context"
	"sync"
	"time"

	"github.com/sightveil/platform/internal/detect"
)

// State is the warning lifecycle position.
type State int

const (
	Idle State = iota
	Active
	Dismissible
	Closed
)

func (s State) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Dismissible:
		return "DISMISSIBLE"
	case Closed:
		return "CLOSED"
	default:
		return "IDLE"
	}
}

// Session is a snapshot of one reflection countdown.
type Session struct {
	StartedAt       time.Time `json:"started_at"`
	RequiredSeconds int       `json:"required_seconds"`
	Remaining       int       `json:"remaining_seconds"`
}

// Event is delivered to listeners on every state or countdown change.
type Event struct {
	State   State   `json:"state"`
	Session Session `json:"session"`
}

// Listener receives machine events. Called synchronously off the machine
// lock; listeners must not block.
type Listener func(Event)

// Config tunes the reflection countdown.
type Config struct {
	RequiredSeconds int           // countdown length for a fresh session
	RepeatExtension int           // extra seconds for a repeat occurrence
	RepeatWindow    time.Duration // how soon after a session a new one counts as a repeat
}

// DefaultConfig returns the stock reflection settings.
func DefaultConfig() Config {
	return Config{
		RequiredSeconds: DefaultRequiredSeconds,
		RepeatExtension: DefaultRepeatExtension,
		RepeatWindow:    DefaultRepeatWindow,
	}
}

// Machine is the reflection/warning state machine. All methods are safe for
// concurrent use.
type Machine struct {
	mu        sync.Mutex
	cfg       Config
	state     State
	session   Session
	lastEnded time.Time
	listeners []Listener

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a machine in the Idle state.
func New(cfg Config) *Machine {
	if cfg.RequiredSeconds <= 0 {
		cfg.RequiredSeconds = DefaultRequiredSeconds
	}
	return &Machine{
		cfg:  cfg,
		stop: make(chan struct{}),
	}
}

// Subscribe registers a listener for all subsequent events.
func (m *Machine) Subscribe(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns the current session, with ok false when no session is live.
func (m *Machine) Snapshot() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.state == Active || m.state == Dismissible
}

// Observe feeds a decision action into the machine. A session starts only
// when no session is live and the action warrants one; severity fluctuation
// during a live session never restarts or extends the countdown.
func (m *Machine) Observe(action detect.ContentAction) {
	if action != detect.FullScreenBlur && action != detect.BlockAndWarn {
		return
	}

	m.mu.Lock()
	if m.state == Active || m.state == Dismissible {
		m.mu.Unlock()
		return
	}

	now := time.Now()
	required := m.cfg.RequiredSeconds
	if !m.lastEnded.IsZero() && now.Sub(m.lastEnded) <= m.cfg.RepeatWindow {
		required += m.cfg.RepeatExtension
	}

	m.state = Active
	m.session = Session{StartedAt: now, RequiredSeconds: required, Remaining: required}
	ev := Event{State: m.state, Session: m.session}
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	notify(listeners, ev)
}

// Tick advances the countdown by one second. At zero the session becomes
// dismissible, exactly once; further ticks are no-ops.
func (m *Machine) Tick() {
	m.mu.Lock()
	if m.state != Active {
		m.mu.Unlock()
		return
	}

	m.session.Remaining--
	if m.session.Remaining <= 0 {
		m.session.Remaining = 0
		m.state = Dismissible
	}
	ev := Event{State: m.state, Session: m.session}
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	notify(listeners, ev)
}

// TryContinue dismisses the session, succeeding only once it is dismissible.
func (m *Machine) TryContinue() bool {
	m.mu.Lock()
	if m.state != Dismissible {
		m.mu.Unlock()
		return false
	}
	ev := m.endSessionLocked()
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	notify(listeners, ev)
	return true
}

// Close discards the session from any state.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.state == Closed || m.state == Idle {
		m.state = Closed
		m.mu.Unlock()
		return
	}
	ev := m.endSessionLocked()
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	notify(listeners, ev)
}

// endSessionLocked records the session end for repeat detection and resets.
func (m *Machine) endSessionLocked() Event {
	m.lastEnded = time.Now()
	m.state = Closed
	m.session = Session{}
	return Event{State: m.state}
}

func (m *Machine) snapshotListeners() []Listener {
	out := make([]Listener, len(m.listeners))
	copy(out, m.listeners)
	return out
}

func notify(listeners []Listener, ev Event) {
	for _, l := range listeners {
		l(ev)
	}
}

// Start runs the dedicated one-second ticker until the context is canceled
// or Stop is called. Reflection timing stays accurate even if frame analysis
// stalls.
func (m *Machine) Start(ctx context.Context) {
	go m.run(ctx)
}

func (m *Machine) run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Stop terminates the ticker goroutine. Idempotent.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}
