package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Seen remembers which message ids were already ingested.
type Seen interface {
	// IsNew reports whether id has not been seen and marks it seen.
	IsNew(ctx context.Context, id string) (bool, error)

	// Forget clears id so the next run processes it again.
	Forget(ctx context.Context, id string) error
}

// DefaultSeenTTL is how long RedisSeen remembers an id.
const DefaultSeenTTL = 24 * time.Hour

const seenKeyPrefix = "emailagent:seen:"

// RedisSeen is a Seen backed by Redis keys with a TTL.
type RedisSeen struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSeen connects to the Redis server at url (redis://host:port/db).
func NewRedisSeen(url string) (*RedisSeen, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisSeen{rdb: redis.NewClient(opts), ttl: DefaultSeenTTL}, nil
}

// IsNew sets the id key only if it does not exist.
func (s *RedisSeen) IsNew(ctx context.Context, id string) (bool, error) {
	set, err := s.rdb.SetNX(ctx, seenKeyPrefix+id, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}

// Forget deletes the id key.
func (s *RedisSeen) Forget(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, seenKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisSeen) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisSeen) Close() error {
	return s.rdb.Close()
}
