package mongodb

import (
	"context"
	"errors"
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/model"
)

type PlaceStore struct {
	col *mongo.Collection
}

func (s *PlaceStore) CreatePlace(ctx context.Context, p *model.Place) error {
	_, err := s.col.InsertOne(ctx, p)
	return err
}

func (s *PlaceStore) GetPlace(ctx context.Context, id string) (*model.Place, error) {
	var p model.Place
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PlaceStore) ListPlaces(ctx context.Context, category model.PlaceCategory) ([]*model.Place, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	return s.find(ctx, filter)
}

// FindNearby narrows with a bounding box in the query, then refines and
// orders by haversine distance. Good enough at meetup radii; a 2dsphere
// index would replace this if place volume ever demands it.
func (s *PlaceStore) FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]*model.Place, error) {
	dLat := radiusMeters / 111320.0
	dLng := dLat
	if cos := math.Cos(lat * math.Pi / 180); cos > 0.01 {
		dLng = dLat / cos
	}
	candidates, err := s.find(ctx, bson.M{
		"latitude":  bson.M{"$gte": lat - dLat, "$lte": lat + dLat},
		"longitude": bson.M{"$gte": lng - dLng, "$lte": lng + dLng},
	})
	if err != nil {
		return nil, err
	}
	type hit struct {
		p *model.Place
		d float64
	}
	var hits []hit
	for _, p := range candidates {
		d := haversineMeters(lat, lng, p.Latitude, p.Longitude)
		if d <= radiusMeters {
			hits = append(hits, hit{p: p, d: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].d < hits[j].d })
	out := make([]*model.Place, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.p)
	}
	return out, nil
}

func (s *PlaceStore) FindByExternalID(ctx context.Context, externalID string, source model.PlaceSource) (*model.Place, error) {
	var p model.Place
	err := s.col.FindOne(ctx, bson.M{"external_place_id": externalID, "source": source}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PlaceStore) find(ctx context.Context, filter bson.M) ([]*model.Place, error) {
	cur, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*model.Place
	for cur.Next(ctx) {
		var p model.Place
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}

const earthRadiusMeters = 6371000

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}
