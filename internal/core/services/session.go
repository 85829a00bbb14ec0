package services

import (
	"sync"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

// SessionManager owns the per-session conversation windows. Windows are
// bounded; the oldest turn is evicted when a session exceeds its capacity.
// The manager serialises access so each window stays single-writer.
type SessionManager struct {
	mu       sync.Mutex
	windows  map[string]*domain.ConversationWindow
	capacity int
}

// NewSessionManager creates a manager whose sessions remember at most
// capacity turns each.
func NewSessionManager(capacity int) *SessionManager {
	return &SessionManager{
		windows:  map[string]*domain.ConversationWindow{},
		capacity: capacity,
	}
}

// Turns returns a snapshot of a session's turns, oldest first. An unknown
// session is an empty one.
func (m *SessionManager) Turns(sessionID string) []domain.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[sessionID]
	if !ok {
		return nil
	}
	return w.Turns()
}

// Record appends a completed turn to a session, creating it on first use.
func (m *SessionManager) Record(sessionID string, turn domain.ConversationTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[sessionID]
	if !ok {
		w = domain.NewConversationWindow(m.capacity)
		m.windows[sessionID] = w
	}
	w.Add(turn)
}

// Reset clears a session's window. Unknown sessions are a no-op.
func (m *SessionManager) Reset(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, sessionID)
}
