// Package session keeps per-session conversation history in process memory.
// History is intentionally volatile: it lives for the lifetime of the process
// and is lost on restart.
package session

import (
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance (user) or one generated reply (assistant).
// Turns are immutable once appended.
type Turn struct {
	UID       string `json:"uid"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	CreatedTs int64  `json:"created_ts"`
}

// NewTurn creates a turn with a fresh UID and the current timestamp.
func NewTurn(role Role, text string) Turn {
	return Turn{
		UID:       shortuuid.New(),
		Role:      role,
		Text:      text,
		CreatedTs: time.Now().Unix(),
	}
}

// Store maps session ids to ordered turn histories.
// Thread-safe for concurrent access; a single Append is atomic, but ordering
// between concurrent appends on the same session is best-effort.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string][]Turn),
	}
}

// Append adds a turn to a session, creating the session implicitly if absent.
func (s *Store) Append(sessionID string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
}

// History returns the ordered turns of a session. Unknown ids yield an empty
// slice, not an error. The returned slice is a copy.
func (s *Store) History(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, exists := s.sessions[sessionID]
	if !exists || len(turns) == 0 {
		return []Turn{}
	}

	result := make([]Turn, len(turns))
	copy(result, turns)
	return result
}

// Recent returns up to limit of the most recent turns of a session.
func (s *Store) Recent(sessionID string, limit int) []Turn {
	turns := s.History(sessionID)
	if limit > 0 && limit < len(turns) {
		return turns[len(turns)-limit:]
	}
	return turns
}

// Clear removes a session entirely. Clearing an unknown id is a no-op.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Count returns the number of active sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
