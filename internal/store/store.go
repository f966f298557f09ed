// Package store defines the persistence contracts. Two implementations
// exist: memory (default, and used by tests) and mongodb.
package store

import (
	"context"

	"github.com/localgroup/localgroup-server/internal/model"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	BlockUser(ctx context.Context, userID, targetID string) error
	AdjustTrustScore(ctx context.Context, userID string, delta int) error
}

type GroupStore interface {
	CreateGroup(ctx context.Context, g *model.Group) error
	GetGroup(ctx context.Context, id string) (*model.Group, error)
	UpdateGroupStatus(ctx context.Context, id string, status model.GroupStatus) error
	ListGroupsByStatus(ctx context.Context, status model.GroupStatus) ([]*model.Group, error)
	ListGroupsByPlace(ctx context.Context, placeID string) ([]*model.Group, error)
	ListGroupsByMember(ctx context.Context, userID string) ([]*model.Group, error)
	CountNonExpiredByCreator(ctx context.Context, creatorID string) (int, error)
	CountActiveByPlace(ctx context.Context, placeID string) (int, error)

	AddMember(ctx context.Context, m *model.GroupMember) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	ListMembers(ctx context.Context, groupID string) ([]*model.GroupMember, error)
	GetMember(ctx context.Context, groupID, userID string) (*model.GroupMember, error)
	SetConfirmed(ctx context.Context, groupID, userID string) error

	// AddReport records reporterID against targetID and returns the number
	// of distinct reporters recorded so far. Duplicate reports from the
	// same reporter do not advance the count.
	AddReport(ctx context.Context, groupID, targetID, reporterID string) (int, error)
	BarUser(ctx context.Context, groupID, userID string) error
	IsBarred(ctx context.Context, groupID, userID string) (bool, error)
}

type PlaceStore interface {
	CreatePlace(ctx context.Context, p *model.Place) error
	GetPlace(ctx context.Context, id string) (*model.Place, error)
	ListPlaces(ctx context.Context, category model.PlaceCategory) ([]*model.Place, error)
	// FindNearby returns places within radiusMeters of (lat, lng), nearest first.
	FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]*model.Place, error)
	FindByExternalID(ctx context.Context, externalID string, source model.PlaceSource) (*model.Place, error)
}

type SafetyStore interface {
	CreateEvent(ctx context.Context, e *model.SafetyEvent) error
	GetEvent(ctx context.Context, id string) (*model.SafetyEvent, error)
	UpdateEventStatus(ctx context.Context, id string, status model.SafetyStatus) error
}
