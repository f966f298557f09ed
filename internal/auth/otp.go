package auth

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const otpTTL = 5 * time.Minute

// OTPStore holds pending login codes keyed by email|phone.
type OTPStore interface {
	Put(ctx context.Context, key, otp string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

func otpKey(email, phone string) string { return email + "|" + phone }

func generateOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(900000)+100000)
}

type memoryOTPEntry struct {
	otp       string
	createdAt time.Time
}

// MemoryOTPStore is the single-node default.
type MemoryOTPStore struct {
	mu      sync.Mutex
	entries map[string]memoryOTPEntry
	now     func() time.Time
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{entries: make(map[string]memoryOTPEntry), now: time.Now}
}

func (s *MemoryOTPStore) Put(_ context.Context, key, otp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryOTPEntry{otp: otp, createdAt: s.now()}
	return nil
}

func (s *MemoryOTPStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if s.now().After(e.createdAt.Add(otpTTL)) {
		delete(s.entries, key)
		return "", false, nil
	}
	return e.otp, true, nil
}

func (s *MemoryOTPStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// RedisOTPStore shares codes across instances; the TTL is enforced by Redis.
type RedisOTPStore struct {
	client *redis.Client
	prefix string
}

func NewRedisOTPStore(client *redis.Client, prefix string) *RedisOTPStore {
	return &RedisOTPStore{client: client, prefix: prefix}
}

func (s *RedisOTPStore) key(k string) string { return s.prefix + ":otp:" + k }

func (s *RedisOTPStore) Put(ctx context.Context, key, otp string) error {
	return s.client.Set(ctx, s.key(key), otp, otpTTL).Err()
}

func (s *RedisOTPStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisOTPStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
