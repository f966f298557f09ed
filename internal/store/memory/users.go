// Package memory holds in-process store implementations. They back the
// default (single node, no Mongo configured) deployment and the test suite.
package memory

import (
	"context"
	"sync"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/model"
)

type UserStore struct {
	mu      sync.RWMutex
	users   map[string]*model.User
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return apperr.ErrBadRequest
	}
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *UserStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *u
	cp.Blocked = append([]string(nil), u.Blocked...)
	return &cp, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *UserStore) BlockUser(_ context.Context, userID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return apperr.ErrNotFound
	}
	if !u.HasBlocked(targetID) {
		u.Blocked = append(u.Blocked, targetID)
	}
	return nil
}

func (s *UserStore) AdjustTrustScore(_ context.Context, userID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return apperr.ErrNotFound
	}
	u.TrustScore += delta
	return nil
}
