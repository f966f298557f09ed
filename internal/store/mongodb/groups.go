package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/model"
)

type GroupStore struct {
	col     *mongo.Collection
	members *mongo.Collection
	reports *mongo.Collection
	bans    *mongo.Collection
}

func (s *GroupStore) CreateGroup(ctx context.Context, g *model.Group) error {
	_, err := s.col.InsertOne(ctx, g)
	return err
}

func (s *GroupStore) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	var g model.Group
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GroupStore) UpdateGroupStatus(ctx context.Context, id string, status model.GroupStatus) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *GroupStore) listGroups(ctx context.Context, filter bson.M) ([]*model.Group, error) {
	cur, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*model.Group
	for cur.Next(ctx) {
		var g model.Group
		if err := cur.Decode(&g); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, cur.Err()
}

func (s *GroupStore) ListGroupsByStatus(ctx context.Context, status model.GroupStatus) ([]*model.Group, error) {
	return s.listGroups(ctx, bson.M{"status": status})
}

func (s *GroupStore) ListGroupsByPlace(ctx context.Context, placeID string) ([]*model.Group, error) {
	return s.listGroups(ctx, bson.M{"place_id": placeID})
}

func (s *GroupStore) ListGroupsByMember(ctx context.Context, userID string) ([]*model.Group, error) {
	cur, err := s.members.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ids []string
	for cur.Next(ctx) {
		var m model.GroupMember
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		ids = append(ids, m.GroupID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.listGroups(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *GroupStore) CountNonExpiredByCreator(ctx context.Context, creatorID string) (int, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{
		"creator_id": creatorID,
		"status":     bson.M{"$ne": model.StatusExpired},
	})
	return int(n), err
}

func (s *GroupStore) CountActiveByPlace(ctx context.Context, placeID string) (int, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{
		"place_id": placeID,
		"status":   bson.M{"$ne": model.StatusExpired},
	})
	return int(n), err
}

func (s *GroupStore) AddMember(ctx context.Context, m *model.GroupMember) error {
	_, err := s.members.InsertOne(ctx, m)
	return err
}

func (s *GroupStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	res, err := s.members.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *GroupStore) ListMembers(ctx context.Context, groupID string) ([]*model.GroupMember, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}})
	cur, err := s.members.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*model.GroupMember
	for cur.Next(ctx) {
		var m model.GroupMember
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

func (s *GroupStore) GetMember(ctx context.Context, groupID, userID string) (*model.GroupMember, error) {
	var m model.GroupMember
	err := s.members.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *GroupStore) SetConfirmed(ctx context.Context, groupID, userID string) error {
	res, err := s.members.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{"confirmed": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// AddReport upserts on the (group, target, reporter) triple so a repeat
// report from the same reporter cannot advance the distinct count.
func (s *GroupStore) AddReport(ctx context.Context, groupID, targetID, reporterID string) (int, error) {
	filter := bson.M{"group_id": groupID, "target_id": targetID, "reporter_id": reporterID}
	_, err := s.reports.UpdateOne(ctx, filter, bson.M{"$setOnInsert": filter}, options.Update().SetUpsert(true))
	if err != nil {
		return 0, err
	}
	n, err := s.reports.CountDocuments(ctx, bson.M{"group_id": groupID, "target_id": targetID})
	return int(n), err
}

func (s *GroupStore) BarUser(ctx context.Context, groupID, userID string) error {
	filter := bson.M{"group_id": groupID, "user_id": userID}
	_, err := s.bans.UpdateOne(ctx, filter, bson.M{"$setOnInsert": filter}, options.Update().SetUpsert(true))
	return err
}

func (s *GroupStore) IsBarred(ctx context.Context, groupID, userID string) (bool, error) {
	n, err := s.bans.CountDocuments(ctx, bson.M{"group_id": groupID, "user_id": userID})
	return n > 0, err
}
