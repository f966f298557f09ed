package place

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/model"
	"github.com/localgroup/localgroup-server/internal/store"
)

// NearbySource is the optional external fallback for nearby lookups.
type NearbySource interface {
	Nearby(ctx context.Context, lat, lng, radiusMeters float64) ([]*model.Place, error)
}

type Service struct {
	places   store.PlaceStore
	groups   store.GroupStore
	fallback NearbySource // nil when disabled
	log      *zap.SugaredLogger
}

func NewService(places store.PlaceStore, groups store.GroupStore, fallback NearbySource, log *zap.SugaredLogger) *Service {
	return &Service{places: places, groups: groups, fallback: fallback, log: log}
}

func (s *Service) Get(ctx context.Context, id string) (*model.PlaceView, error) {
	p, err := s.places.GetPlace(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toView(ctx, p), nil
}

func (s *Service) List(ctx context.Context, category model.PlaceCategory) ([]*model.PlaceView, error) {
	places, err := s.places.ListPlaces(ctx, category)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, places), nil
}

// Nearby serves from the local index; when that comes back empty and a
// fallback source is configured, external results are imported as MAP
// places. Fallback failure degrades to the local result, never to an error.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusMeters float64) ([]*model.PlaceView, error) {
	if radiusMeters <= 0 {
		radiusMeters = 1000
	}
	local, err := s.places.FindNearby(ctx, lat, lng, radiusMeters)
	if err != nil {
		return nil, err
	}
	if len(local) > 0 || s.fallback == nil {
		return s.toViews(ctx, local), nil
	}

	external, err := s.fallback.Nearby(ctx, lat, lng, radiusMeters)
	if err != nil {
		s.log.Warnw("nearby fallback failed", "err", err)
		return s.toViews(ctx, local), nil
	}
	imported := make([]*model.Place, 0, len(external))
	for _, p := range external {
		id, err := s.FindOrCreateMapPlace(ctx, p)
		if err != nil {
			s.log.Warnw("import external place", "external", p.ExternalPlaceID, "err", err)
			continue
		}
		p.ID = id
		imported = append(imported, p)
	}
	return s.toViews(ctx, imported), nil
}

// FindOrCreateMapPlace dedups on (externalPlaceId, MAP). INTERNAL places
// are never touched by this path.
func (s *Service) FindOrCreateMapPlace(ctx context.Context, p *model.Place) (string, error) {
	if p.ExternalPlaceID == "" || p.Name == "" {
		return "", fmt.Errorf("%w: map place requires name and externalPlaceId", apperr.ErrBadRequest)
	}
	existing, err := s.places.FindByExternalID(ctx, p.ExternalPlaceID, model.SourceMap)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}

	p.ID = uuid.NewString()
	p.Source = model.SourceMap
	p.CreatedAt = time.Now().UTC()
	if err := s.places.CreatePlace(ctx, p); err != nil {
		return "", err
	}
	s.log.Infow("map place created", "place", p.ID, "external", p.ExternalPlaceID)
	return p.ID, nil
}

func (s *Service) toView(ctx context.Context, p *model.Place) *model.PlaceView {
	n, err := s.groups.CountActiveByPlace(ctx, p.ID)
	if err != nil {
		n = 0
	}
	return &model.PlaceView{Place: *p, ActiveGroupCount: n}
}

func (s *Service) toViews(ctx context.Context, places []*model.Place) []*model.PlaceView {
	out := make([]*model.PlaceView, 0, len(places))
	for _, p := range places {
		out = append(out, s.toView(ctx, p))
	}
	return out
}
