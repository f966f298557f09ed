package group

import (
	"context"
	"time"

	"github.com/localgroup/localgroup-server/internal/events"
	"github.com/localgroup/localgroup-server/internal/model"
)

// Scheduler drives the time-based edges of the state machine. The windows
// are explicit configuration: the confirmation window opens CONFIRMATION
// ahead of the event, the expire buffer closes ACTIVE after it.
type Scheduler struct {
	svc      *Service
	interval time.Duration
}

func NewScheduler(svc *Service, interval time.Duration) *Scheduler {
	if interval == 0 {
		interval = time.Minute
	}
	return &Scheduler{svc: svc, interval: interval}
}

func (sc *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sc.Tick(ctx)
		}
	}
}

// Tick progresses every group whose window has elapsed. Each group is
// handled under its own lock; groups are independent of each other.
func (sc *Scheduler) Tick(ctx context.Context) {
	now := sc.svc.now()
	sc.openConfirmations(ctx, now)
	sc.activateDue(ctx, now)
	sc.expireFinished(ctx, now)
}

// JOINABLE -> CONFIRMATION once the pre-event window is reached.
func (sc *Scheduler) openConfirmations(ctx context.Context, now time.Time) {
	groups, err := sc.svc.groups.ListGroupsByStatus(ctx, model.StatusJoinable)
	if err != nil {
		sc.svc.log.Warnw("scheduler list joinable", "err", err)
		return
	}
	for _, g := range groups {
		if g.DateTime.Add(-sc.svc.cfg.ConfirmationWindow).After(now) {
			continue
		}
		unlock := sc.svc.lock(g.ID)
		var evs []events.Event
		cur, err := sc.svc.groups.GetGroup(ctx, g.ID)
		if err == nil && cur.Status == model.StatusJoinable {
			if err := sc.svc.transitionLocked(ctx, cur, model.StatusConfirmation, &evs); err != nil {
				sc.svc.log.Warnw("scheduler transition", "group", g.ID, "err", err)
			}
		}
		unlock()
		sc.svc.publish(ctx, evs)
	}
}

// CONFIRMATION -> ACTIVE at event time. Unconfirmed members are dropped
// with a no-show trust penalty; fewer than two confirmed attendees kills
// the meetup instead.
func (sc *Scheduler) activateDue(ctx context.Context, now time.Time) {
	groups, err := sc.svc.groups.ListGroupsByStatus(ctx, model.StatusConfirmation)
	if err != nil {
		sc.svc.log.Warnw("scheduler list confirmation", "err", err)
		return
	}
	for _, g := range groups {
		if g.DateTime.After(now) {
			continue
		}
		unlock := sc.svc.lock(g.ID)
		var evs []events.Event
		sc.activateOne(ctx, g.ID, &evs)
		unlock()
		sc.svc.publish(ctx, evs)
	}
}

func (sc *Scheduler) activateOne(ctx context.Context, groupID string, evs *[]events.Event) {
	g, err := sc.svc.groups.GetGroup(ctx, groupID)
	if err != nil || g.Status != model.StatusConfirmation {
		return
	}
	members, err := sc.svc.groups.ListMembers(ctx, groupID)
	if err != nil {
		sc.svc.log.Warnw("scheduler list members", "group", groupID, "err", err)
		return
	}

	confirmed := 0
	var noShows []string
	for _, m := range members {
		if m.Confirmed {
			confirmed++
		} else {
			noShows = append(noShows, m.UserID)
		}
	}
	for _, uid := range noShows {
		if err := sc.svc.groups.RemoveMember(ctx, groupID, uid); err != nil {
			sc.svc.log.Warnw("scheduler drop no-show", "group", groupID, "user", uid, "err", err)
			continue
		}
		sc.svc.notifier.NotifyGroup(groupID, "member_removed", map[string]any{"userId": uid, "reason": "unconfirmed"})
	}

	to := model.StatusActive
	if confirmed < MinSize {
		to = model.StatusExpired
	}
	if err := sc.svc.transitionLocked(ctx, g, to, evs); err != nil {
		sc.svc.log.Warnw("scheduler transition", "group", groupID, "err", err)
		return
	}
	// trust penalties go out after the state is settled
	for _, uid := range noShows {
		sc.svc.adjustTrust(ctx, uid, -2, "no_show", evs)
	}
}

// ACTIVE -> EXPIRED once dateTime + buffer has passed; confirmed
// attendees earn a trust reward.
func (sc *Scheduler) expireFinished(ctx context.Context, now time.Time) {
	groups, err := sc.svc.groups.ListGroupsByStatus(ctx, model.StatusActive)
	if err != nil {
		sc.svc.log.Warnw("scheduler list active", "err", err)
		return
	}
	for _, g := range groups {
		if g.DateTime.Add(sc.svc.cfg.ExpireBuffer).After(now) {
			continue
		}
		unlock := sc.svc.lock(g.ID)
		var evs []events.Event
		cur, err := sc.svc.groups.GetGroup(ctx, g.ID)
		if err == nil && cur.Status == model.StatusActive {
			members, merr := sc.svc.groups.ListMembers(ctx, g.ID)
			if err := sc.svc.transitionLocked(ctx, cur, model.StatusExpired, &evs); err != nil {
				sc.svc.log.Warnw("scheduler transition", "group", g.ID, "err", err)
			} else if merr == nil {
				for _, m := range members {
					if m.Confirmed {
						sc.svc.adjustTrust(ctx, m.UserID, 1, "attended", &evs)
					}
				}
			}
		}
		unlock()
		sc.svc.publish(ctx, evs)
	}
}
