package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const slotKeyPrefix = "upload_slot:"

// SlotStore records issued upload slots in Redis with the same TTL as the
// credential, so operators can see which uploads are pending. Bookkeeping
// only: slot expiry is advisory, not enforced against the store.
type SlotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSlotStore builds a slot store. A nil client disables bookkeeping.
func NewSlotStore(client *redis.Client, ttl time.Duration) *SlotStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SlotStore{client: client, ttl: ttl}
}

// Record notes an issued upload slot for a mission object key.
func (s *SlotStore) Record(ctx context.Context, missionID, key string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Set(ctx, slotKeyPrefix+missionID+":"+key, time.Now().Format(time.RFC3339), s.ttl).Err()
}

// Pending lists object keys with an open upload slot for a mission.
func (s *SlotStore) Pending(ctx context.Context, missionID string) ([]string, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}
	pattern := slotKeyPrefix + missionID + ":*"
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, err
	}
	prefix := slotKeyPrefix + missionID + ":"
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k[len(prefix):])
	}
	return out, nil
}
