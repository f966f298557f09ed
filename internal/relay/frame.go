package relay

import (
	"encoding/json"
	"strings"
)

// The wire protocol mirrors the client contract: subscriptions name the
// destination /topic/chat/{groupId}, publishes name /app/chat.send/{groupId}
// with payload {content}. Inbound frames carry a type so the connection
// loop can dispatch without sniffing.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameSend        = "send"

	FrameMessage = "message"
	FrameGroup   = "group"
	FrameSOS     = "sos"
	FrameError   = "error"
)

const (
	topicPrefix = "/topic/chat/"
	sendPrefix  = "/app/chat.send/"
)

type Frame struct {
	Type        string          `json:"type"`
	Destination string          `json:"destination,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

type SendPayload struct {
	Content string `json:"content"`
}

// TopicGroupID extracts the group id from a /topic/chat/{id} destination.
func TopicGroupID(destination string) (string, bool) {
	id, ok := strings.CutPrefix(destination, topicPrefix)
	return id, ok && id != ""
}

// SendGroupID extracts the group id from an /app/chat.send/{id} destination.
func SendGroupID(destination string) (string, bool) {
	id, ok := strings.CutPrefix(destination, sendPrefix)
	return id, ok && id != ""
}

func Topic(groupID string) string { return topicPrefix + groupID }

func marshalFrame(frameType, destination string, payload any) []byte {
	raw, _ := json.Marshal(payload)
	b, _ := json.Marshal(Frame{Type: frameType, Destination: destination, Payload: raw})
	return b
}

// ErrorFrame is sent back on the same socket when an inbound frame is
// rejected; the kind is the machine-readable error taxonomy name.
func ErrorFrame(kind, message string) []byte {
	return marshalFrame(FrameError, "", map[string]string{"kind": kind, "message": message})
}

// SOSFrame wraps a safety event for delivery to member sessions.
func SOSFrame(payload any) []byte {
	return marshalFrame(FrameSOS, "", payload)
}
