package registry

import (
	"sync"

	"github.com/example/chat-relay/domain/chat"
)

// SessionTracker maps live connection ids to the identity and room each one
// occupies. It holds no room state of its own; cleanup on disconnect is
// driven by the binding it returns.
type SessionTracker struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
}

// NewSessionTracker creates an empty tracker.
func NewSessionTracker() *SessionTracker {
	return &SessionTracker{
		sessions: make(map[string]chat.Session),
	}
}

// Bind records the binding for connID, overwriting any prior one.
func (t *SessionTracker) Bind(connID, username, code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[connID] = chat.Session{Username: username, RoomCode: code}
}

// Unbind atomically removes and returns the binding for connID.
func (t *SessionTracker) Unbind(connID string) (chat.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.sessions[connID]
	if ok {
		delete(t.sessions, connID)
	}
	return sess, ok
}

// Lookup returns the current binding for connID without removing it.
func (t *SessionTracker) Lookup(connID string) (chat.Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sess, ok := t.sessions[connID]
	return sess, ok
}

// Count returns the number of live bindings.
func (t *SessionTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
