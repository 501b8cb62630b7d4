package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	defaultSuccessTimeout = 10 * time.Second
	defaultSessionTTL     = 10 * time.Minute
)

// Manager owns the live sessions. Each session is guarded by its own mutex,
// so two kiosks never contend and a slow store call on one session cannot
// stall another.
type Manager struct {
	controller     *Controller
	successTimeout time.Duration
	sessionTTL     time.Duration

	mu       sync.Mutex
	sessions map[string]*managed
}

type managed struct {
	mu    sync.Mutex
	state *Session
	timer *time.Timer
}

type ManagerOptions struct {
	SuccessTimeout time.Duration
	SessionTTL     time.Duration
}

func NewManager(controller *Controller, options ManagerOptions) *Manager {
	timeout := options.SuccessTimeout
	if timeout <= 0 {
		timeout = defaultSuccessTimeout
	}
	ttl := options.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Manager{
		controller:     controller,
		successTimeout: timeout,
		sessionTTL:     ttl,
		sessions:       make(map[string]*managed),
	}
}

// Create starts a new session on the welcome screen and returns a snapshot.
func (m *Manager) Create() Session {
	state := &Session{
		ID:        uuid.NewString(),
		Screen:    ScreenWelcome,
		UpdatedAt: m.controller.now(),
	}
	entry := &managed{state: state}

	m.mu.Lock()
	m.sessions[state.ID] = entry
	m.mu.Unlock()

	return *state
}

// Get returns a snapshot of the session.
func (m *Manager) Get(sessionID string) (Session, error) {
	entry, ok := m.lookup(sessionID)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return *entry.state, nil
}

// Dispatch applies one event to the session under its lock and returns the
// resulting snapshot. Arriving on the success screen arms the auto-return
// timer; leaving it disarms any pending one.
func (m *Manager) Dispatch(ctx context.Context, sessionID string, event Event) (Session, error) {
	entry, ok := m.lookup(sessionID)
	if !ok {
		return Session{}, ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := m.controller.Handle(ctx, entry.state, event); err != nil {
		return Session{}, err
	}

	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}
	if entry.state.Screen == ScreenSuccess {
		entry.timer = m.armSuccessTimer(sessionID, entry.state.Epoch)
	}
	return *entry.state, nil
}

// armSuccessTimer schedules the return to the welcome screen. The captured
// epoch makes the firing harmless if the user navigated first.
func (m *Manager) armSuccessTimer(sessionID string, epoch uint64) *time.Timer {
	return time.AfterFunc(m.successTimeout, func() {
		_, _ = m.Dispatch(context.Background(), sessionID, Event{Kind: EventTimeout, Epoch: epoch})
	})
}

// Sweep drops sessions idle for longer than the TTL. Meant to be driven by a
// ticker in main.
func (m *Manager) Sweep() int {
	cutoff := m.controller.now().Add(-m.sessionTTL)

	m.mu.Lock()
	candidates := make(map[string]*managed, len(m.sessions))
	for id, entry := range m.sessions {
		candidates[id] = entry
	}
	m.mu.Unlock()

	removed := 0
	for id, entry := range candidates {
		entry.mu.Lock()
		expired := entry.state.UpdatedAt.Before(cutoff)
		if expired && entry.timer != nil {
			entry.timer.Stop()
			entry.timer = nil
		}
		entry.mu.Unlock()

		if expired {
			m.mu.Lock()
			delete(m.sessions, id)
			m.mu.Unlock()
			removed++
		}
	}
	return removed
}

func (m *Manager) lookup(sessionID string) (*managed, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[sessionID]
	return entry, ok
}
