// Package mongodb implements the store contracts on MongoDB. One database,
// one collection per entity.
package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	Users  *UserStore
	Groups *GroupStore
	Places *PlaceStore
	Safety *SafetyStore

	client *mongo.Client
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(database)
	return &Store{
		Users:  &UserStore{col: db.Collection("users")},
		Groups: &GroupStore{col: db.Collection("groups"), members: db.Collection("group_members"), reports: db.Collection("group_reports"), bans: db.Collection("group_bans")},
		Places: &PlaceStore{col: db.Collection("places")},
		Safety: &SafetyStore{col: db.Collection("safety_events")},
		client: client,
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
