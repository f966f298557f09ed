// Package safety handles the SOS path. It bypasses the normal group
// mutation flow: triggering an alert never changes group state.
package safety

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/events"
	"github.com/localgroup/localgroup-server/internal/group"
	"github.com/localgroup/localgroup-server/internal/metrics"
	"github.com/localgroup/localgroup-server/internal/model"
	"github.com/localgroup/localgroup-server/internal/relay"
	"github.com/localgroup/localgroup-server/internal/session"
	"github.com/localgroup/localgroup-server/internal/store"
)

type Service struct {
	groups   *group.Service
	store    store.SafetyStore
	registry *session.Registry
	events   events.Publisher
	log      *zap.SugaredLogger
}

func NewService(groups *group.Service, st store.SafetyStore, registry *session.Registry, pub events.Publisher, log *zap.SugaredLogger) *Service {
	return &Service{groups: groups, store: st, registry: registry, events: pub, log: log}
}

// TriggerSOS requires an ACTIVE group and a member caller. On success the
// alert is persisted, pushed to every other member's live sessions, and a
// trusted-contact notification is enqueued on the event pipeline. The
// returned error reflects the enqueue only, not downstream delivery.
// This is not an emergency service and does not contact authorities.
func (s *Service) TriggerSOS(ctx context.Context, groupID, userID string, lat, lng *float64) (*model.SafetyEvent, error) {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	member, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperr.ErrNotAMember
	}
	if g.Status != model.StatusActive {
		return nil, fmt.Errorf("%w: SOS requires an ACTIVE group (current: %s)", apperr.ErrInvalidState, g.Status)
	}

	ev := &model.SafetyEvent{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		TriggeredBy: userID,
		Status:      model.SafetyOpen,
		Latitude:    lat,
		Longitude:   lng,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.store.CreateEvent(ctx, ev); err != nil {
		return nil, err
	}
	metrics.SOSTriggered.Inc()
	s.log.Warnw("sos triggered", "group", groupID, "user", userID, "event", ev.ID)

	s.alertMembers(ctx, groupID, userID, ev)

	// trusted-contact notification; delivery is an external collaborator
	if err := s.events.Publish(ctx, events.Event{
		Type:    events.TypeSOSTriggered,
		UserID:  userID,
		GroupID: groupID,
		Payload: map[string]any{
			"eventId":   ev.ID,
			"latitude":  lat,
			"longitude": lng,
		},
	}); err != nil {
		return nil, fmt.Errorf("%w: enqueue sos notification: %v", apperr.ErrInternal, err)
	}
	return ev, nil
}

// alertMembers fans the alert to every other member's live sessions.
// Best-effort: offline members simply miss the push.
func (s *Service) alertMembers(ctx context.Context, groupID, triggeredBy string, ev *model.SafetyEvent) {
	members, err := s.groups.Members(ctx, groupID)
	if err != nil {
		s.log.Warnw("sos member list failed", "group", groupID, "err", err)
		return
	}
	frame := relay.SOSFrame(ev)
	for _, m := range members {
		if m.UserID == triggeredBy {
			continue
		}
		for _, sess := range s.registry.ByUser(m.UserID) {
			sess.Deliver(frame)
		}
	}
}

// Resolve closes an open SOS event. Only the member who triggered it or
// another member of the group may resolve.
func (s *Service) Resolve(ctx context.Context, eventID, userID string) error {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	member, err := s.groups.IsMember(ctx, ev.GroupID, userID)
	if err != nil {
		return err
	}
	if !member && ev.TriggeredBy != userID {
		return apperr.ErrForbidden
	}
	if ev.Status == model.SafetyResolved {
		return nil
	}
	return s.store.UpdateEventStatus(ctx, eventID, model.SafetyResolved)
}
