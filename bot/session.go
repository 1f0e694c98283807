package bot

import (
	"sync"
	"time"

	"earnbot/models"
)

// State is a step in a per-user conversation
type State string

const (
	StateIdle                   State = "idle"
	StateAwaitingWithdrawMethod State = "awaiting_withdraw_method"
	StateAwaitingMobileNumber   State = "awaiting_mobile_number"
	StateAwaitingWithdrawAmount State = "awaiting_withdraw_amount"
	StateAwaitingBroadcastText  State = "awaiting_broadcast_text"
)

// sessionTTL is how long an unfinished conversation survives without input
const sessionTTL = 30 * time.Minute

// Session stores the in-progress conversation of one user. It never holds ledger data.
type Session struct {
	UserID    int64
	State     State
	Method    models.WithdrawalMethod
	Mobile    string
	UpdatedAt time.Time
}

// SessionStore keeps one session per user in memory
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	now      func() time.Time
}

// NewSessionStore creates an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

// Get returns a copy of the user's session; expired or missing sessions are idle
func (s *SessionStore) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok || s.now().Sub(session.UpdatedAt) > sessionTTL {
		delete(s.sessions, userID)
		return Session{UserID: userID, State: StateIdle}
	}
	return *session
}

// Save stores the session, dropping it entirely once it returns to idle
func (s *SessionStore) Save(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.State == StateIdle {
		delete(s.sessions, session.UserID)
		return
	}
	session.UpdatedAt = s.now()
	s.sessions[session.UserID] = &session
}

// Reset returns the user to idle
func (s *SessionStore) Reset(userID int64) {
	s.Save(Session{UserID: userID, State: StateIdle})
}

// Cleanup removes expired sessions and returns how many were dropped
func (s *SessionStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := s.now()
	for userID, session := range s.sessions {
		if now.Sub(session.UpdatedAt) > sessionTTL {
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed
}
