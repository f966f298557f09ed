package memory

import (
	"context"
	"sync"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/model"
)

type GroupStore struct {
	mu      sync.RWMutex
	groups  map[string]*model.Group
	members map[string][]*model.GroupMember          // groupID -> members, join order
	reports map[string]map[string]map[string]struct{} // groupID -> targetID -> reporterIDs
	barred  map[string]map[string]struct{}            // groupID -> userIDs
}

func NewGroupStore() *GroupStore {
	return &GroupStore{
		groups:  make(map[string]*model.Group),
		members: make(map[string][]*model.GroupMember),
		reports: make(map[string]map[string]map[string]struct{}),
		barred:  make(map[string]map[string]struct{}),
	}
}

func (s *GroupStore) CreateGroup(_ context.Context, g *model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.groups[g.ID] = &cp
	return nil
}

func (s *GroupStore) GetGroup(_ context.Context, id string) (*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *GroupStore) UpdateGroupStatus(_ context.Context, id string, status model.GroupStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return apperr.ErrNotFound
	}
	g.Status = status
	return nil
}

func (s *GroupStore) ListGroupsByStatus(_ context.Context, status model.GroupStatus) ([]*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Group
	for _, g := range s.groups {
		if g.Status == status {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *GroupStore) ListGroupsByPlace(_ context.Context, placeID string) ([]*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Group
	for _, g := range s.groups {
		if g.PlaceID == placeID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *GroupStore) ListGroupsByMember(_ context.Context, userID string) ([]*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Group
	for gid, members := range s.members {
		for _, m := range members {
			if m.UserID == userID {
				if g, ok := s.groups[gid]; ok {
					cp := *g
					out = append(out, &cp)
				}
				break
			}
		}
	}
	return out, nil
}

func (s *GroupStore) CountNonExpiredByCreator(_ context.Context, creatorID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, g := range s.groups {
		if g.CreatorID == creatorID && g.Status != model.StatusExpired {
			n++
		}
	}
	return n, nil
}

func (s *GroupStore) CountActiveByPlace(_ context.Context, placeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, g := range s.groups {
		if g.PlaceID == placeID && g.Status != model.StatusExpired {
			n++
		}
	}
	return n, nil
}

func (s *GroupStore) AddMember(_ context.Context, m *model.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[m.GroupID]; !ok {
		return apperr.ErrNotFound
	}
	cp := *m
	s.members[m.GroupID] = append(s.members[m.GroupID], &cp)
	return nil
}

func (s *GroupStore) RemoveMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.members[groupID]
	for i, m := range members {
		if m.UserID == userID {
			s.members[groupID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (s *GroupStore) ListMembers(_ context.Context, groupID string) ([]*model.GroupMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.members[groupID]
	out := make([]*model.GroupMember, 0, len(members))
	for _, m := range members {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s *GroupStore) GetMember(_ context.Context, groupID, userID string) (*model.GroupMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members[groupID] {
		if m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *GroupStore) SetConfirmed(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members[groupID] {
		if m.UserID == userID {
			m.Confirmed = true
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (s *GroupStore) AddReport(_ context.Context, groupID, targetID, reporterID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byTarget, ok := s.reports[groupID]
	if !ok {
		byTarget = make(map[string]map[string]struct{})
		s.reports[groupID] = byTarget
	}
	reporters, ok := byTarget[targetID]
	if !ok {
		reporters = make(map[string]struct{})
		byTarget[targetID] = reporters
	}
	reporters[reporterID] = struct{}{}
	return len(reporters), nil
}

func (s *GroupStore) BarUser(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.barred[groupID]
	if !ok {
		set = make(map[string]struct{})
		s.barred[groupID] = set
	}
	set[userID] = struct{}{}
	return nil
}

func (s *GroupStore) IsBarred(_ context.Context, groupID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.barred[groupID]
	if !ok {
		return false, nil
	}
	_, barred := set[userID]
	return barred, nil
}
