package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/model"
)

type PlaceStore struct {
	mu     sync.RWMutex
	places map[string]*model.Place
}

func NewPlaceStore() *PlaceStore {
	return &PlaceStore{places: make(map[string]*model.Place)}
}

func (s *PlaceStore) CreatePlace(_ context.Context, p *model.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.places[p.ID] = &cp
	return nil
}

func (s *PlaceStore) GetPlace(_ context.Context, id string) (*model.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.places[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *PlaceStore) ListPlaces(_ context.Context, category model.PlaceCategory) ([]*model.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Place
	for _, p := range s.places {
		if category != "" && p.Category != category {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *PlaceStore) FindNearby(_ context.Context, lat, lng, radiusMeters float64) ([]*model.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type hit struct {
		p *model.Place
		d float64
	}
	var hits []hit
	for _, p := range s.places {
		d := haversineMeters(lat, lng, p.Latitude, p.Longitude)
		if d <= radiusMeters {
			cp := *p
			hits = append(hits, hit{p: &cp, d: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].d < hits[j].d })
	out := make([]*model.Place, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.p)
	}
	return out, nil
}

func (s *PlaceStore) FindByExternalID(_ context.Context, externalID string, source model.PlaceSource) (*model.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.places {
		if p.ExternalPlaceID == externalID && p.Source == source {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
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
