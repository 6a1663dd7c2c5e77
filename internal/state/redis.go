package state

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore persists dialogs as JSON values under a dialog: prefix so state
// survives restarts and can be shared between instances.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func dialogKey(userID string) string {
	return "dialog:" + userID
}

func (s *redisStore) Get(ctx context.Context, userID string) (Dialog, bool, error) {
	val, err := s.client.Get(ctx, dialogKey(userID)).Result()
	if err == redis.Nil {
		return Dialog{}, false, nil
	}
	if err != nil {
		return Dialog{}, false, err
	}

	var d Dialog
	if err := json.Unmarshal([]byte(val), &d); err != nil {
		return Dialog{}, false, err
	}

	// Refresh the expiry on read so an active conversation never lapses
	// mid-flow.
	_ = s.client.Expire(ctx, dialogKey(userID), s.ttl).Err()

	return d, true, nil
}

func (s *redisStore) Put(ctx context.Context, userID string, d Dialog) error {
	val, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, dialogKey(userID), val, s.ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, dialogKey(userID)).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
