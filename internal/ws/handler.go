// Package ws owns the websocket endpoint: handshake auth, the read and
// write pumps, and dispatch of protocol frames into the relay.
package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/auth"
	"github.com/localgroup/localgroup-server/internal/relay"
	"github.com/localgroup/localgroup-server/internal/session"
)

type Config struct {
	PingInterval   time.Duration
	WriteDeadline  time.Duration
	ReadDeadline   time.Duration
	MaxMessageSize int64
}

type Handler struct {
	tokens   *auth.TokenManager
	registry *session.Registry
	chat     *relay.Chat
	cfg      Config
	log      *zap.SugaredLogger
}

func NewHandler(tokens *auth.TokenManager, registry *session.Registry, chat *relay.Chat, cfg Config, log *zap.SugaredLogger) *Handler {
	if cfg.PingInterval == 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.WriteDeadline == 0 {
		cfg.WriteDeadline = 10 * time.Second
	}
	if cfg.ReadDeadline == 0 {
		cfg.ReadDeadline = 60 * time.Second
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = 65536
	}
	return &Handler{tokens: tokens, registry: registry, chat: chat, cfg: cfg, log: log}
}

// Handle runs for each upgraded connection. The bearer token rides the
// query string; a failed handshake closes the socket before any session
// exists. Each reconnect is a brand-new session: subscriptions do not
// survive a disconnect.
func (h *Handler) Handle(conn *websocket.Conn) {
	token := conn.Query("token")
	if token == "" {
		_ = conn.WriteMessage(websocket.TextMessage, relay.ErrorFrame("Unauthorized", "missing token"))
		_ = conn.Close()
		return
	}
	claims, err := h.tokens.Validate(token)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, relay.ErrorFrame("Unauthorized", "invalid token"))
		_ = conn.Close()
		return
	}

	ctx := context.Background()
	sess := h.registry.Register(ctx, claims.UserID, claims.Email)
	defer func() {
		h.chat.Hub().DropSession(sess)
		h.registry.Deregister(ctx, sess.ID)
		_ = conn.Close()
	}()

	go h.writePump(conn, sess)
	h.readPump(ctx, conn, sess)
}

func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, sess *session.Session) {
	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadDeadline))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f relay.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			sess.Deliver(relay.ErrorFrame("BadRequest", "malformed frame"))
			continue
		}
		h.dispatch(ctx, sess, f)
	}
}

func (h *Handler) dispatch(ctx context.Context, sess *session.Session, f relay.Frame) {
	switch f.Type {
	case relay.FrameSubscribe:
		groupID, ok := relay.TopicGroupID(f.Destination)
		if !ok {
			sess.Deliver(relay.ErrorFrame("BadRequest", "unknown destination"))
			return
		}
		if err := h.chat.Subscribe(ctx, groupID, sess); err != nil {
			sess.Deliver(relay.ErrorFrame(apperr.Kind(err), err.Error()))
		}
	case relay.FrameUnsubscribe:
		groupID, ok := relay.TopicGroupID(f.Destination)
		if !ok {
			sess.Deliver(relay.ErrorFrame("BadRequest", "unknown destination"))
			return
		}
		h.chat.Unsubscribe(groupID, sess)
	case relay.FrameSend:
		groupID, ok := relay.SendGroupID(f.Destination)
		if !ok {
			sess.Deliver(relay.ErrorFrame("BadRequest", "unknown destination"))
			return
		}
		var p relay.SendPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			sess.Deliver(relay.ErrorFrame("BadRequest", "malformed payload"))
			return
		}
		if err := h.chat.Publish(ctx, groupID, sess, p.Content); err != nil {
			sess.Deliver(relay.ErrorFrame(apperr.Kind(err), err.Error()))
		}
	default:
		sess.Deliver(relay.ErrorFrame("BadRequest", "unknown frame type"))
	}
}

func (h *Handler) writePump(conn *websocket.Conn, sess *session.Session) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case msg, ok := <-sess.Outbound():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteDeadline))
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
