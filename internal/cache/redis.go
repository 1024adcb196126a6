package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"walk-navigation/internal/navigation"
)

const DefaultSnapshotTTL = 30 * time.Minute

// RedisSessionCache stores session snapshots as JSON strings that expire
// after ttl without updates.
type RedisSessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionCache(client *redis.Client, ttl time.Duration) *RedisSessionCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &RedisSessionCache{client: client, ttl: ttl}
}

func (r RedisSessionCache) SetSnapshot(ctx context.Context, snapshot *navigation.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}
	key := formatKey(snapshot.ID)
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r RedisSessionCache) GetSnapshot(ctx context.Context, sessionID string) (*navigation.Snapshot, error) {
	key := formatKey(sessionID)
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", navigation.ErrSnapshotNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}
	var snapshot navigation.Snapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshalling snapshot: %w", err)
	}
	return &snapshot, nil
}

func (r RedisSessionCache) DeleteSnapshot(ctx context.Context, sessionID string) error {
	key := formatKey(sessionID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

func formatKey(sessionID string) string {
	return fmt.Sprintf("navigation:session:%s", sessionID)
}
