package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingKeyPrefix = "gpuhub:pending:"
	pendingLockTTL   = 30 * time.Second
)

// RedisPendingStore keeps pending-input records in Redis so that a
// multi-instance deployment shares suspended sessions. Per-session
// serialization uses a SETNX lease with a TTL; a crashed holder frees the
// key once the lease expires.
type RedisPendingStore struct {
	client *redis.Client
}

func NewRedisPendingStore(url string) (*RedisPendingStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisPendingStore{client: client}, nil
}

// NewRedisPendingStoreFromClient wires an existing client (tests use
// miniredis here).
func NewRedisPendingStoreFromClient(client *redis.Client) *RedisPendingStore {
	return &RedisPendingStore{client: client}
}

// Lock acquires the per-session lease, retrying while another holder keeps
// it. A Redis error aborts acquisition rather than proceeding unlocked.
func (s *RedisPendingStore) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := pendingKeyPrefix + "lock:" + sessionID
	for {
		ok, err := s.client.SetNX(ctx, key, "1", pendingLockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return func() {
		// Release must outlive a canceled request context.
		s.client.Del(context.Background(), key)
	}, nil
}

func (s *RedisPendingStore) Get(ctx context.Context, sessionID string) (*PendingRecord, error) {
	data, err := s.client.Get(ctx, pendingKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec PendingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisPendingStore) Put(ctx context.Context, sessionID string, rec *PendingRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	// No expiry: a pending record persists until the final input arrives.
	return s.client.Set(ctx, pendingKeyPrefix+sessionID, data, 0).Err()
}

func (s *RedisPendingStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, pendingKeyPrefix+sessionID).Err()
}

func (s *RedisPendingStore) Len(ctx context.Context) int {
	keys, err := s.client.Keys(ctx, pendingKeyPrefix+"*").Result()
	if err != nil {
		return 0
	}
	n := 0
	for _, k := range keys {
		if len(k) > len(pendingKeyPrefix)+5 && k[:len(pendingKeyPrefix)+5] == pendingKeyPrefix+"lock:" {
			continue
		}
		n++
	}
	return n
}
