// Package events carries the outbound event pipeline: trust-score changes
// and safety notifications are enqueued here for external consumers (trust
// computation, SMS/push delivery). Delivery past the enqueue is not this
// service's concern.
package events

import (
	"context"
	"time"
)

const (
	TypeTrustDelta   = "trust.delta"
	TypeSOSTriggered = "safety.sos"
	TypeGroupExpired = "group.expired"
	TypeGroupActive  = "group.active"
)

type Event struct {
	Type      string         `json:"type"`
	UserID    string         `json:"userId,omitempty"`
	GroupID   string         `json:"groupId,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}
