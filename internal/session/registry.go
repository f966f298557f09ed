package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/metrics"
)

// Presence mirrors session liveness to an external store (Redis) as the
// secondary dead-session net. The primary reaper is the ping/pong
// deadline on the connection itself.
type Presence interface {
	Up(ctx context.Context, userID, sessionID string) error
	Down(ctx context.Context, userID, sessionID string) error
}

type Registry struct {
	mu       sync.RWMutex
	byID     map[string]*Session
	byUser   map[string]map[string]*Session
	presence Presence // nil when not configured
	log      *zap.SugaredLogger
}

func NewRegistry(presence Presence, log *zap.SugaredLogger) *Registry {
	return &Registry{
		byID:     make(map[string]*Session),
		byUser:   make(map[string]map[string]*Session),
		presence: presence,
		log:      log,
	}
}

func (r *Registry) Register(ctx context.Context, userID, email string) *Session {
	s := newSession(userID, email)
	r.mu.Lock()
	r.byID[s.ID] = s
	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[string]*Session)
		r.byUser[userID] = set
	}
	set[s.ID] = s
	r.mu.Unlock()

	metrics.SessionsOpen.Inc()
	if r.presence != nil {
		if err := r.presence.Up(ctx, userID, s.ID); err != nil {
			r.log.Warnw("presence up failed", "session", s.ID, "err", err)
		}
	}
	r.log.Infow("session registered", "session", s.ID, "user", userID)
	return s
}

func (r *Registry) Lookup(sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[sessionID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s, nil
}

// ByUser returns every live session for a user (multi-device fan-out).
func (r *Registry) ByUser(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[userID]
	out := make([]*Session, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Deregister(ctx context.Context, sessionID string) {
	r.mu.Lock()
	s, ok := r.byID[sessionID]
	if ok {
		delete(r.byID, sessionID)
		if set, ok := r.byUser[s.UserID]; ok {
			delete(set, sessionID)
			if len(set) == 0 {
				delete(r.byUser, s.UserID)
			}
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	s.close()
	metrics.SessionsOpen.Dec()
	if r.presence != nil {
		if err := r.presence.Down(ctx, s.UserID, s.ID); err != nil {
			r.log.Warnw("presence down failed", "session", s.ID, "err", err)
		}
	}
	r.log.Infow("session deregistered", "session", s.ID, "user", s.UserID)
}
