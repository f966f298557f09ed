package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceTTL = 24 * time.Hour

// RedisPresence keeps a per-user set of live session ids with a TTL, so
// sessions orphaned by a crashed instance age out on their own.
type RedisPresence struct {
	client *redis.Client
	prefix string
}

func NewRedisPresence(client *redis.Client, prefix string) *RedisPresence {
	return &RedisPresence{client: client, prefix: prefix}
}

func (p *RedisPresence) key(userID string) string {
	return p.prefix + ":sessions:" + userID
}

func (p *RedisPresence) Up(ctx context.Context, userID, sessionID string) error {
	if err := p.client.SAdd(ctx, p.key(userID), sessionID).Err(); err != nil {
		return err
	}
	return p.client.Expire(ctx, p.key(userID), presenceTTL).Err()
}

func (p *RedisPresence) Down(ctx context.Context, userID, sessionID string) error {
	return p.client.SRem(ctx, p.key(userID), sessionID).Err()
}
