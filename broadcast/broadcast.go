// broadcast/broadcast.go
package broadcast

import (
	"github.com/abel198523/Edel-bingo-30/session"
)

// Broadcaster fans serialized events out to connected sessions. Delivery is
// best-effort: a send to a connection that is no longer open is dropped,
// never surfaced to the caller.
type Broadcaster interface {
	Broadcast(v interface{})
	Unicast(sessionID int64, v interface{})
}

// SessionBroadcaster delivers events over the session registry.
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *SessionBroadcaster) Broadcast(v interface{}) {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(v); err != nil {
			// connection is gone or mid-close, the next reset drops it
			continue
		}
	}
}

func (b *SessionBroadcaster) Unicast(sessionID int64, v interface{}) {
	s, exists := b.sessionManager.Get(sessionID)
	if !exists {
		return
	}
	_ = s.Send(v)
}
