// Package session owns the per-call dialogue state. A session is created on
// first contact, mutated once per inbound utterance, and destroyed as soon
// as the dialogue concludes; nothing outlives its call.
package session

import (
	"sync"

	"core/internal/model"
)

// Session accumulates the state of one in-progress call.
type Session struct {
	CallID    string
	Turns     []model.Turn
	Slots     model.SlotSet
	UserTurns int
}

// AddTurn appends a conversation turn and bumps the counter for user turns.
func (s *Session) AddTurn(role, text string) {
	s.Turns = append(s.Turns, model.Turn{Role: role, Text: text})
	if role == model.RoleUser {
		s.UserTurns++
	}
}

// MergeSlots applies a monotonic merge of extractor output into the
// session's slot set.
func (s *Session) MergeSlots(update *model.SlotSet) {
	s.Slots.Merge(update)
}

// Store maps call identifiers to live sessions. Distinct calls may be
// handled on concurrent requests, so access is guarded; within one call,
// turns arrive strictly sequentially.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	greeting string
}

// NewStore creates a session store. New sessions open with greeting as
// their first assistant turn.
func NewStore(greeting string) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		greeting: greeting,
	}
}

// GetOrCreate returns the session for callID, creating it if absent. The
// second return value reports whether a new session was created.
func (st *Store) GetOrCreate(callID string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if sess, ok := st.sessions[callID]; ok {
		return sess, false
	}
	sess := &Session{
		CallID: callID,
		Turns:  []model.Turn{{Role: model.RoleAssistant, Text: st.greeting}},
	}
	st.sessions[callID] = sess
	return sess, true
}

// Get returns the session for callID, or nil if none exists.
func (st *Store) Get(callID string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[callID]
}

// Remove destroys the session for callID. Removing an absent session is a
// no-op.
func (st *Store) Remove(callID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, callID)
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
