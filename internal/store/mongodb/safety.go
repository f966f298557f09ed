package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/model"
)

type SafetyStore struct {
	col *mongo.Collection
}

func (s *SafetyStore) CreateEvent(ctx context.Context, e *model.SafetyEvent) error {
	_, err := s.col.InsertOne(ctx, e)
	return err
}

func (s *SafetyStore) GetEvent(ctx context.Context, id string) (*model.SafetyEvent, error) {
	var e model.SafetyEvent
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SafetyStore) UpdateEventStatus(ctx context.Context, id string, status model.SafetyStatus) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
