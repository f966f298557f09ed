package memory

import (
	"context"
	"sync"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/model"
)

type SafetyStore struct {
	mu     sync.RWMutex
	events map[string]*model.SafetyEvent
}

func NewSafetyStore() *SafetyStore {
	return &SafetyStore{events: make(map[string]*model.SafetyEvent)}
}

func (s *SafetyStore) CreateEvent(_ context.Context, e *model.SafetyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *SafetyStore) GetEvent(_ context.Context, id string) (*model.SafetyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *SafetyStore) UpdateEventStatus(_ context.Context, id string, status model.SafetyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return apperr.ErrNotFound
	}
	e.Status = status
	return nil
}
