package session

import (
	"net"
	"testing"
	"time"

	"github.com/abel198523/Edel-bingo-30/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(v interface{}) error                  { return nil }
func (m *MockConnection) Close() error                              { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                      { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)       {}
func (m *MockConnection) ReadEnvelope() (*network.Envelope, error)  { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Create_Get_Remove(t *testing.T) {
	manager := NewManager()
	sess := manager.Create(&MockConnection{})

	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	retrievedSess, exists := manager.Get(sess.ID)
	if !exists {
		t.Fatal("Get should find the created session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	manager.Remove(sess.ID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sess.ID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_Create_MonotonicIDs(t *testing.T) {
	manager := NewManager()

	sess1 := manager.Create(&MockConnection{})
	sess2 := manager.Create(&MockConnection{})
	sess3 := manager.Create(&MockConnection{})

	if sess1.ID >= sess2.ID || sess2.ID >= sess3.ID {
		t.Errorf("Session ids should be strictly increasing, got %d %d %d",
			sess1.ID, sess2.ID, sess3.ID)
	}
}

func TestManager_GetByUserID(t *testing.T) {
	manager := NewManager()

	sess1 := manager.Create(&MockConnection{})
	sess1.Authenticate(100, "alice", 50)

	sess2 := manager.Create(&MockConnection{})
	sess2.Authenticate(200, "bob", 50)

	sess3 := manager.Create(&MockConnection{})
	sess3.Authenticate(100, "alice", 50)

	user100Sessions := manager.GetByUserID(100)
	if len(user100Sessions) != 2 {
		t.Errorf("Expected 2 sessions for user 100, got %d", len(user100Sessions))
	}

	user200Sessions := manager.GetByUserID(200)
	if len(user200Sessions) != 1 {
		t.Errorf("Expected 1 session for user 200, got %d", len(user200Sessions))
	}

	user300Sessions := manager.GetByUserID(300)
	if len(user300Sessions) != 0 {
		t.Errorf("Expected 0 sessions for user 300, got %d", len(user300Sessions))
	}
}

func TestSession_Authenticate(t *testing.T) {
	sess := NewSession(1, &MockConnection{})

	if sess.IsAuthenticated() {
		t.Fatal("A fresh session should not be authenticated")
	}
	if sess.Username() != "Guest_1" {
		t.Errorf("Expected guest username Guest_1, got %q", sess.Username())
	}

	sess.Authenticate(42, "alice", 120)

	if !sess.IsAuthenticated() {
		t.Fatal("Session should be authenticated after Authenticate")
	}
	if sess.UserID() != 42 {
		t.Errorf("Expected user id 42, got %d", sess.UserID())
	}
	if sess.Username() != "alice" {
		t.Errorf("Expected username alice, got %q", sess.Username())
	}
	if sess.Balance() != 120 {
		t.Errorf("Expected balance 120, got %v", sess.Balance())
	}
}

func TestSession_ResetRound(t *testing.T) {
	sess := NewSession(1, &MockConnection{})
	sess.SelectCard(7)
	sess.MarkStaked(90)

	if sess.CardID() != 7 {
		t.Fatalf("Expected card 7, got %d", sess.CardID())
	}
	if !sess.IsStaked() {
		t.Fatal("Session should be staked after MarkStaked")
	}

	sess.ResetRound()

	if sess.CardID() != 0 {
		t.Errorf("Expected card cleared after reset, got %d", sess.CardID())
	}
	if sess.IsStaked() {
		t.Error("Session should not be staked after reset")
	}
	if sess.Balance() != 90 {
		t.Errorf("Reset should not touch the balance, got %v", sess.Balance())
	}
}

func TestManager_CountStaked(t *testing.T) {
	manager := NewManager()

	sess1 := manager.Create(&MockConnection{})
	sess2 := manager.Create(&MockConnection{})
	manager.Create(&MockConnection{})

	sess1.MarkStaked(40)
	sess2.MarkStaked(40)

	if manager.CountStaked() != 2 {
		t.Errorf("Expected 2 staked sessions, got %d", manager.CountStaked())
	}
	if len(manager.StakedSessions()) != 2 {
		t.Errorf("Expected 2 staked sessions from StakedSessions, got %d", len(manager.StakedSessions()))
	}

	manager.ResetRound()

	if manager.CountStaked() != 0 {
		t.Errorf("Expected 0 staked sessions after round reset, got %d", manager.CountStaked())
	}
}
