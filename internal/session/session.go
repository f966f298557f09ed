// Package session tracks live websocket connections: who is on the other
// end and how to reach them. One user may hold several sessions at once.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const sendBuffer = 256

// Session is one authenticated connection. Writes go through the buffered
// outbound channel; a slow consumer drops frames rather than blocking the
// relay (at-most-once delivery).
type Session struct {
	ID        string
	UserID    string
	Email     string
	Connected time.Time

	out    chan []byte
	closed bool
	mu     sync.Mutex
}

func newSession(userID, email string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		Connected: time.Now().UTC(),
		out:       make(chan []byte, sendBuffer),
	}
}

// Deliver enqueues a frame for the connection writer. Returns false when
// the frame was dropped (buffer full or session closed).
func (s *Session) Deliver(b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- b:
		return true
	default:
		return false
	}
}

// Outbound is consumed by the connection's write pump.
func (s *Session) Outbound() <-chan []byte { return s.out }

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}
