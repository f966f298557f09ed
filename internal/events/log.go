package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher is the fallback when no Kafka brokers are configured:
// events land in the log instead of a topic.
type LogPublisher struct {
	log *zap.SugaredLogger
}

func NewLogPublisher(log *zap.SugaredLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Infow("event", "type", ev.Type, "user", ev.UserID, "group", ev.GroupID, "payload", ev.Payload)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
