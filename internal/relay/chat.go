package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/group"
	"github.com/localgroup/localgroup-server/internal/metrics"
	"github.com/localgroup/localgroup-server/internal/model"
	"github.com/localgroup/localgroup-server/internal/session"
	"github.com/localgroup/localgroup-server/internal/store"
)

// Chat enforces the channel rules: membership gates subscription, and
// publishing additionally requires a live (ACTIVE) group, non-blank
// content within the length cap and a sender the creator hasn't blocked.
// Messages are ephemeral; nothing is persisted.
type Chat struct {
	hub    *Hub
	groups *group.Service
	users  store.UserStore
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewChat(hub *Hub, groups *group.Service, users store.UserStore, log *zap.SugaredLogger) *Chat {
	c := &Chat{hub: hub, groups: groups, users: users, log: log, now: time.Now}
	groups.SetNotifier(c)
	return c
}

func (c *Chat) Hub() *Hub { return c.hub }

func (c *Chat) Subscribe(ctx context.Context, groupID string, s *session.Session) error {
	ok, err := c.groups.IsMember(ctx, groupID, s.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not a member of this group", apperr.ErrForbidden)
	}
	c.hub.Subscribe(groupID, s)
	c.log.Debugw("subscribed", "group", groupID, "session", s.ID)
	return nil
}

func (c *Chat) Unsubscribe(groupID string, s *session.Session) {
	c.hub.Unsubscribe(groupID, s)
}

// Publish validates and fans out. Delivery is at-most-once: subscribers
// that disconnected or fell behind miss the message, and there is no
// replay buffer. The sender's own sessions receive the echo too; the
// client deduplicates locally.
func (c *Chat) Publish(ctx context.Context, groupID string, s *session.Session, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: message content cannot be blank", apperr.ErrBadRequest)
	}
	if len(content) > model.ChatMessageMaxLength {
		return fmt.Errorf("%w: message exceeds %d characters", apperr.ErrBadRequest, model.ChatMessageMaxLength)
	}

	g, err := c.groups.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if g.Status != model.StatusActive {
		return fmt.Errorf("%w: chat allowed only when group is ACTIVE (current: %s)", apperr.ErrInvalidState, g.Status)
	}
	ok, err := c.groups.IsMember(ctx, groupID, s.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotAMember
	}
	creator, err := c.users.GetUser(ctx, g.CreatorID)
	if err == nil && creator.HasBlocked(s.UserID) {
		return fmt.Errorf("%w: blocked by the group creator", apperr.ErrForbidden)
	}

	msg := model.ChatMessage{
		GroupID:     groupID,
		SenderID:    s.UserID,
		SenderEmail: s.Email,
		Content:     content,
		Timestamp:   c.now().UTC(),
	}
	delivered := c.hub.Broadcast(groupID, marshalFrame(FrameMessage, Topic(groupID), msg))
	metrics.MessagesRelayed.Inc()
	c.log.Debugw("message relayed", "group", groupID, "sender", s.UserID, "delivered", delivered)
	return nil
}

// NotifyGroup implements group.Notifier: lifecycle events ride the same
// channel infrastructure as chat.
func (c *Chat) NotifyGroup(groupID, event string, payload map[string]any) {
	body := map[string]any{"event": event}
	for k, v := range payload {
		body[k] = v
	}
	c.hub.Broadcast(groupID, marshalFrame(FrameGroup, Topic(groupID), body))
}
