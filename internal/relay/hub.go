// Package relay is the per-group publish/subscribe fan-out. The hub keeps
// the channel -> subscriber bookkeeping; Chat layers the membership and
// content rules on top.
package relay

import (
	"sync"

	"github.com/localgroup/localgroup-server/internal/session"
)

type Hub struct {
	mu        sync.RWMutex
	subs      map[string]map[*session.Session]struct{} // groupID -> sessions
	bySession map[*session.Session]map[string]struct{} // session -> groupIDs
}

func NewHub() *Hub {
	return &Hub{
		subs:      make(map[string]map[*session.Session]struct{}),
		bySession: make(map[*session.Session]map[string]struct{}),
	}
}

func (h *Hub) Subscribe(groupID string, s *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[groupID]
	if !ok {
		set = make(map[*session.Session]struct{})
		h.subs[groupID] = set
	}
	set[s] = struct{}{}

	groups, ok := h.bySession[s]
	if !ok {
		groups = make(map[string]struct{})
		h.bySession[s] = groups
	}
	groups[groupID] = struct{}{}
}

func (h *Hub) Unsubscribe(groupID string, s *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(groupID, s)
}

func (h *Hub) unsubscribeLocked(groupID string, s *session.Session) {
	if set, ok := h.subs[groupID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, groupID)
		}
	}
	if groups, ok := h.bySession[s]; ok {
		delete(groups, groupID)
		if len(groups) == 0 {
			delete(h.bySession, s)
		}
	}
}

// DropSession atomically cancels every subscription the session holds.
// Called on disconnect, before the registry forgets the session.
func (h *Hub) DropSession(s *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for groupID := range h.bySession[s] {
		h.unsubscribeLocked(groupID, s)
	}
}

// Broadcast delivers a frame to every subscriber of the group, the
// publisher's other sessions included. Per-publisher order is preserved:
// the hub hands frames to each session's queue in call order.
func (h *Hub) Broadcast(groupID string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for s := range h.subs[groupID] {
		if s.Deliver(frame) {
			n++
		}
	}
	return n
}

// Subscribers reports how many sessions are subscribed to the group.
func (h *Hub) Subscribers(groupID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[groupID])
}
