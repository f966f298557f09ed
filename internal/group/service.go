// Package group owns the meetup lifecycle: creation, membership, the
// confirmation quorum, report-based removal and the status state machine
// JOINABLE -> CONFIRMATION -> ACTIVE -> EXPIRED.
package group

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/events"
	"github.com/localgroup/localgroup-server/internal/metrics"
	"github.com/localgroup/localgroup-server/internal/model"
	"github.com/localgroup/localgroup-server/internal/store"
)

const (
	MinSize = 2
	MaxSize = 6
)

// Notifier pushes group events to live member sessions. The relay
// implements it; a nop is used when no relay is attached.
type Notifier interface {
	NotifyGroup(groupID, event string, payload map[string]any)
}

type nopNotifier struct{}

func (nopNotifier) NotifyGroup(string, string, map[string]any) {}

type Config struct {
	ConfirmationWindow  time.Duration
	ExpireBuffer        time.Duration
	MaxActivePerCreator int
}

type Service struct {
	groups   store.GroupStore
	users    store.UserStore
	events   events.Publisher
	notifier Notifier
	cfg      Config
	log      *zap.SugaredLogger
	now      func() time.Time

	// per-group locks linearize join/leave/confirm/report so concurrent
	// joins can never push membership past maxSize
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewService(groups store.GroupStore, users store.UserStore, pub events.Publisher, cfg Config, log *zap.SugaredLogger) *Service {
	if cfg.ConfirmationWindow == 0 {
		cfg.ConfirmationWindow = 24 * time.Hour
	}
	if cfg.ExpireBuffer == 0 {
		cfg.ExpireBuffer = 30 * time.Minute
	}
	if cfg.MaxActivePerCreator == 0 {
		cfg.MaxActivePerCreator = 2
	}
	return &Service{
		groups:   groups,
		users:    users,
		events:   pub,
		notifier: nopNotifier{},
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// SetNotifier attaches the relay after construction (the relay itself
// depends on this service for membership checks).
func (s *Service) SetNotifier(n Notifier) {
	if n != nil {
		s.notifier = n
	}
}

func (s *Service) lock(groupID string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[groupID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[groupID] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

type CreateParams struct {
	PlaceID    string
	DateTime   time.Time
	MaxSize    int
	Visibility model.Visibility
	InviteCode string
}

func (s *Service) Create(ctx context.Context, creatorID string, p CreateParams) (*model.GroupView, error) {
	if p.MaxSize < MinSize || p.MaxSize > MaxSize {
		return nil, fmt.Errorf("%w: maxSize must be between %d and %d", apperr.ErrBadRequest, MinSize, MaxSize)
	}
	if p.PlaceID == "" {
		return nil, fmt.Errorf("%w: placeId is required", apperr.ErrBadRequest)
	}
	if !p.DateTime.After(s.now()) {
		return nil, fmt.Errorf("%w: dateTime must be in the future", apperr.ErrBadRequest)
	}
	if p.Visibility != model.VisibilityPublic && p.Visibility != model.VisibilityPrivate {
		return nil, fmt.Errorf("%w: visibility must be PUBLIC or PRIVATE", apperr.ErrBadRequest)
	}

	active, err := s.groups.CountNonExpiredByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if active >= s.cfg.MaxActivePerCreator {
		return nil, fmt.Errorf("%w: creator already has %d active groups", apperr.ErrInvalidState, active)
	}

	g := &model.Group{
		ID:         uuid.NewString(),
		PlaceID:    p.PlaceID,
		CreatorID:  creatorID,
		DateTime:   p.DateTime.UTC(),
		MaxSize:    p.MaxSize,
		Visibility: p.Visibility,
		Status:     model.StatusJoinable,
		CreatedAt:  s.now().UTC(),
	}
	if p.Visibility == model.VisibilityPrivate {
		if p.InviteCode == "" {
			return nil, fmt.Errorf("%w: private groups require an invite code", apperr.ErrBadRequest)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(p.InviteCode), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		g.InviteCodeHash = string(hash)
	}

	if err := s.groups.CreateGroup(ctx, g); err != nil {
		return nil, err
	}
	// creator auto-joins, already confirmed
	creator := &model.GroupMember{GroupID: g.ID, UserID: creatorID, Confirmed: true, JoinedAt: s.now().UTC()}
	if err := s.groups.AddMember(ctx, creator); err != nil {
		return nil, err
	}

	metrics.GroupsCreated.Inc()
	s.log.Infow("group created", "group", g.ID, "creator", creatorID, "place", g.PlaceID)
	return &model.GroupView{Group: *g, MemberCount: 1}, nil
}

func (s *Service) Join(ctx context.Context, groupID, userID string) error {
	return s.join(ctx, groupID, userID, "", false)
}

func (s *Service) JoinPrivate(ctx context.Context, groupID, userID, inviteCode string) error {
	return s.join(ctx, groupID, userID, inviteCode, true)
}

func (s *Service) join(ctx context.Context, groupID, userID, inviteCode string, private bool) error {
	unlock := s.lock(groupID)
	var evs []events.Event
	err := s.joinLocked(ctx, groupID, userID, inviteCode, private, &evs)
	unlock()
	s.publish(ctx, evs)
	return err
}

func (s *Service) joinLocked(ctx context.Context, groupID, userID, inviteCode string, private bool, evs *[]events.Event) error {
	g, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if private && g.Visibility != model.VisibilityPrivate {
		return fmt.Errorf("%w: not a private group", apperr.ErrInvalidState)
	}
	if g.Visibility == model.VisibilityPrivate {
		if bcrypt.CompareHashAndPassword([]byte(g.InviteCodeHash), []byte(inviteCode)) != nil {
			return apperr.ErrInvalidInviteCode
		}
	}
	if g.Status != model.StatusJoinable {
		return fmt.Errorf("%w: group is %s", apperr.ErrInvalidState, g.Status)
	}
	if g.CreatorID == userID {
		return fmt.Errorf("%w: creator is already a member", apperr.ErrInvalidState)
	}
	barred, err := s.groups.IsBarred(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if barred {
		return fmt.Errorf("%w: removed from this group", apperr.ErrForbidden)
	}
	creator, err := s.users.GetUser(ctx, g.CreatorID)
	if err == nil && creator.HasBlocked(userID) {
		return fmt.Errorf("%w: blocked by the group creator", apperr.ErrForbidden)
	}

	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.UserID == userID {
			return fmt.Errorf("%w: already a member", apperr.ErrInvalidState)
		}
	}
	if len(members) >= g.MaxSize {
		return apperr.ErrGroupFull
	}

	if err := s.groups.AddMember(ctx, &model.GroupMember{
		GroupID: groupID, UserID: userID, JoinedAt: s.now().UTC(),
	}); err != nil {
		return err
	}
	metrics.GroupJoins.Inc()
	s.log.Infow("member joined", "group", groupID, "user", userID)
	s.notifier.NotifyGroup(groupID, "member_joined", map[string]any{"userId": userID})

	// filling the last slot locks the roster immediately
	if len(members)+1 == g.MaxSize {
		return s.transitionLocked(ctx, g, model.StatusConfirmation, evs)
	}
	return nil
}

// Leave is permitted in JOINABLE and CONFIRMATION; leaving a live meetup
// is not. A creator leaving before ACTIVE expires the whole group.
func (s *Service) Leave(ctx context.Context, groupID, userID string) error {
	unlock := s.lock(groupID)
	var evs []events.Event
	err := s.leaveLocked(ctx, groupID, userID, &evs)
	unlock()
	s.publish(ctx, evs)
	return err
}

func (s *Service) leaveLocked(ctx context.Context, groupID, userID string, evs *[]events.Event) error {
	g, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if g.Status == model.StatusActive || g.Status == model.StatusExpired {
		return fmt.Errorf("%w: cannot leave a group in status %s", apperr.ErrInvalidState, g.Status)
	}
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrNotAMember
		}
		return err
	}
	s.log.Infow("member left", "group", groupID, "user", userID)
	s.notifier.NotifyGroup(groupID, "member_left", map[string]any{"userId": userID})

	if g.CreatorID == userID {
		return s.transitionLocked(ctx, g, model.StatusExpired, evs)
	}
	// the departed member may have been the last holdout
	if g.Status == model.StatusConfirmation {
		members, err := s.groups.ListMembers(ctx, groupID)
		if err != nil {
			return err
		}
		if len(members) >= MinSize && allConfirmed(members) {
			return s.transitionLocked(ctx, g, model.StatusActive, evs)
		}
	}
	return nil
}

// Confirm marks attendance. Idempotent: confirming twice is a no-op.
func (s *Service) Confirm(ctx context.Context, groupID, userID string) error {
	unlock := s.lock(groupID)
	var evs []events.Event
	err := s.confirmLocked(ctx, groupID, userID, &evs)
	unlock()
	s.publish(ctx, evs)
	return err
}

func (s *Service) confirmLocked(ctx context.Context, groupID, userID string, evs *[]events.Event) error {
	g, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if g.Status != model.StatusConfirmation {
		return fmt.Errorf("%w: confirmation not open (group is %s)", apperr.ErrInvalidState, g.Status)
	}
	m, err := s.groups.GetMember(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrNotAMember
		}
		return err
	}
	if m.Confirmed {
		return nil
	}
	if err := s.groups.SetConfirmed(ctx, groupID, userID); err != nil {
		return err
	}
	s.notifier.NotifyGroup(groupID, "member_confirmed", map[string]any{"userId": userID})

	// everyone in -> go live without waiting for the event time
	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return err
	}
	if !allConfirmed(members) {
		return nil
	}
	return s.transitionLocked(ctx, g, model.StatusActive, evs)
}

func allConfirmed(members []*model.GroupMember) bool {
	for _, m := range members {
		if !m.Confirmed {
			return false
		}
	}
	return true
}

// Report records a distinct-reporter report against targetID. Reaching
// floor(n/2)+1 distinct reporters (n = current membership when the report
// lands) removes the target and bars them from rejoining this group.
func (s *Service) Report(ctx context.Context, groupID, reporterID, targetID string) error {
	unlock := s.lock(groupID)
	defer unlock()

	if reporterID == targetID {
		return fmt.Errorf("%w: cannot report yourself", apperr.ErrInvalidTarget)
	}
	if _, err := s.groups.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if _, err := s.groups.GetMember(ctx, groupID, reporterID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrNotAMember
		}
		return err
	}
	if _, err := s.groups.GetMember(ctx, groupID, targetID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("%w: target is not a member", apperr.ErrInvalidTarget)
		}
		return err
	}

	distinct, err := s.groups.AddReport(ctx, groupID, targetID, reporterID)
	if err != nil {
		return err
	}
	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return err
	}
	quorum := len(members)/2 + 1
	s.log.Infow("report recorded", "group", groupID, "target", targetID, "reporters", distinct, "quorum", quorum)
	if distinct < quorum {
		return nil
	}

	if err := s.groups.RemoveMember(ctx, groupID, targetID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil // someone else's report already removed them
		}
		return err
	}
	if err := s.groups.BarUser(ctx, groupID, targetID); err != nil {
		return err
	}
	s.log.Infow("member removed by report quorum", "group", groupID, "target", targetID)
	s.notifier.NotifyGroup(groupID, "member_removed", map[string]any{"userId": targetID, "reason": "reported"})
	return nil
}

func (s *Service) Get(ctx context.Context, groupID string) (*model.GroupView, error) {
	g, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &model.GroupView{Group: *g, MemberCount: len(members)}, nil
}

func (s *Service) ListByPlace(ctx context.Context, placeID string) ([]*model.GroupView, error) {
	groups, err := s.groups.ListGroupsByPlace(ctx, placeID)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, groups)
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]*model.GroupView, error) {
	groups, err := s.groups.ListGroupsByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, groups)
}

func (s *Service) Members(ctx context.Context, groupID string) ([]*model.GroupMember, error) {
	return s.groups.ListMembers(ctx, groupID)
}

func (s *Service) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	_, err := s.groups.GetMember(ctx, groupID, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) toViews(ctx context.Context, groups []*model.Group) ([]*model.GroupView, error) {
	out := make([]*model.GroupView, 0, len(groups))
	for _, g := range groups {
		members, err := s.groups.ListMembers(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &model.GroupView{Group: *g, MemberCount: len(members)})
	}
	return out, nil
}

// transitionLocked mutates status and announces it to live sessions.
// Callers hold the group lock; outbound pipeline events are appended to
// evs and must be published via publish() once the lock is released, so
// a slow broker can never stall group mutations.
func (s *Service) transitionLocked(ctx context.Context, g *model.Group, to model.GroupStatus, evs *[]events.Event) error {
	if err := s.groups.UpdateGroupStatus(ctx, g.ID, to); err != nil {
		return err
	}
	from := g.Status
	g.Status = to
	metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	s.log.Infow("group transition", "group", g.ID, "from", from, "to", to)
	s.notifier.NotifyGroup(g.ID, "status_changed", map[string]any{"status": string(to)})

	switch to {
	case model.StatusActive:
		*evs = append(*evs, events.Event{Type: events.TypeGroupActive, GroupID: g.ID})
	case model.StatusExpired:
		*evs = append(*evs, events.Event{Type: events.TypeGroupExpired, GroupID: g.ID})
	}
	return nil
}

func (s *Service) adjustTrust(ctx context.Context, userID string, delta int, reason string, evs *[]events.Event) {
	if err := s.users.AdjustTrustScore(ctx, userID, delta); err != nil {
		s.log.Warnw("trust adjust failed", "user", userID, "err", err)
		return
	}
	*evs = append(*evs, events.Event{
		Type:    events.TypeTrustDelta,
		UserID:  userID,
		Payload: map[string]any{"delta": delta, "reason": reason},
	})
}

// publish flushes events collected during a locked section.
func (s *Service) publish(ctx context.Context, evs []events.Event) {
	for _, ev := range evs {
		if err := s.events.Publish(ctx, ev); err != nil {
			s.log.Warnw("event publish failed", "type", ev.Type, "err", err)
		}
	}
}
