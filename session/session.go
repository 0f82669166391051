// session/session.go
package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abel198523/Edel-bingo-30/network"
)

// Session is the transient state of one live connection. It is distinct from
// a persisted user: a session starts as a guest and may authenticate later.
type Session struct {
	ID        int64
	Conn      network.Connection
	CreatedAt time.Time

	mutex          sync.RWMutex
	userID         int64
	username       string
	selectedCardID int
	staked         bool
	balance        float64
}

func NewSession(id int64, conn network.Connection) *Session {
	return &Session{
		ID:        id,
		Conn:      conn,
		CreatedAt: time.Now(),
		username:  fmt.Sprintf("Guest_%d", id),
	}
}

func (s *Session) Send(v interface{}) error {
	return s.Conn.Send(v)
}

func (s *Session) GetID() int64 {
	return s.ID
}

func (s *Session) Authenticate(userID int64, username string, balance float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.userID = userID
	s.username = username
	s.balance = balance
}

func (s *Session) IsAuthenticated() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.userID != 0
}

func (s *Session) UserID() int64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.userID
}

func (s *Session) Username() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.username
}

// SelectCard records the card id the session claims. Card ids are opaque to
// the engine; card contents are a client concern.
func (s *Session) SelectCard(cardID int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.selectedCardID = cardID
}

// CardID returns the selected card id, 0 when none is selected.
func (s *Session) CardID() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.selectedCardID
}

// MarkStaked is called only after a successful persisted debit.
func (s *Session) MarkStaked(balance float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.staked = true
	s.balance = balance
}

func (s *Session) IsStaked() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.staked
}

// Balance is the last known balance, advisory only; the wallet gateway is
// the source of truth.
func (s *Session) Balance() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.balance
}

func (s *Session) SetBalance(balance float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.balance = balance
}

// ResetRound clears the per-round selection state at selection entry.
func (s *Session) ResetRound() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.selectedCardID = 0
	s.staked = false
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager is the registry of all connected sessions.
type Manager struct {
	sessions map[int64]*Session
	mutex    sync.RWMutex
	nextID   int64
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
	}
}

// Create registers a new session for conn with a fresh monotonically
// increasing id.
func (m *Manager) Create(conn network.Connection) *Session {
	id := atomic.AddInt64(&m.nextID, 1)
	sess := NewSession(id, conn)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[id] = sess
	return sess
}

// Remove drops a session on disconnect. A completed stake debit is not
// reversed; the session is simply excluded from future broadcasts.
func (m *Manager) Remove(sessionID int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID int64) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	sess, exists := m.sessions[sessionID]
	return sess, exists
}

func (m *Manager) GetByUserID(userID int64) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, sess := range m.sessions {
		if sess.UserID() == userID {
			result = append(result, sess)
		}
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// All returns a snapshot of every live session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

func (m *Manager) CountStaked() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	count := 0
	for _, sess := range m.sessions {
		if sess.IsStaked() {
			count++
		}
	}
	return count
}

func (m *Manager) StakedSessions() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, sess := range m.sessions {
		if sess.IsStaked() {
			result = append(result, sess)
		}
	}
	return result
}

// ResetRound clears every session's selection state. Called by the round
// controller at selection entry.
func (m *Manager) ResetRound() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, sess := range m.sessions {
		sess.ResetRound()
	}
}
