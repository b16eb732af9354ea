package services

import (
	"sync"
	"time"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// session is one conversation plus the mutex serialising its messages.
type session struct {
	mu   sync.Mutex
	conv domain.Conversation
}

// SessionTable owns the live conversations, keyed by session ID.
type SessionTable struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionTable creates an empty table.
func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[string]*session)}
}

// getOrCreate returns the session for id, creating it on first use.
func (t *SessionTable) getOrCreate(id string) (*session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[id]; ok {
		return s, false
	}
	now := time.Now()
	s := &session{conv: domain.Conversation{SessionID: id, CreatedAt: now, UpdatedAt: now}}
	t.sessions[id] = s
	return s, true
}

// get returns the session for id, if live.
func (t *SessionTable) get(id string) (*session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	return s, ok
}

// Delete drops the session. A message still running against it completes
// on the detached state.
func (t *SessionTable) Delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, id)
}

// Len returns the number of live sessions.
func (t *SessionTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
