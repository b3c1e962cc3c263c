package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
)

// RedisStore caches recently scraped records so repeat jobs can reuse
// them instead of refetching within the TTL window.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Lookup returns the cached record for a place URL, if any.
func (s *RedisStore) Lookup(ctx context.Context, url string) (domain.BusinessRecord, bool, error) {
	var rec domain.BusinessRecord
	val, err := s.client.Get(ctx, recordKey(url)).Result()
	if errors.Is(err, redis.Nil) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

// Store caches a scraped record with a TTL.
func (s *RedisStore) Store(ctx context.Context, rec domain.BusinessRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, recordKey(rec.MapsURL), payload, ttl).Err()
}

// recordKey hashes the place URL into a consistent, safe Redis key.
func recordKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return fmt.Sprintf("record:%s", hex.EncodeToString(h[:]))
}
