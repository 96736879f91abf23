package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned when no live entry exists for a key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry is returned when a stored value cannot be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager stores GraphQL responses in Redis as snappy-compressed JSON, with
// a Redis TTL equal to the remaining entry lifetime.
type Manager struct {
	redis *redis.Client
}

// NewManager panics on a nil client.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("cache: nil redis client")
	}
	return &Manager{redis: redisClient}
}

func encodeEntry(entry *CacheEntry) ([]byte, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

func decodeEntry(stored []byte) (*CacheEntry, error) {
	raw, err := snappy.Decode(nil, stored)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	entry := new(CacheEntry)
	if err := json.Unmarshal(raw, entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return entry, nil
}

// Get returns the live entry for key, or ErrCacheMiss. An entry found past
// its expiry is removed.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	stored, err := m.redis.Get(ctx, key.String()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		CacheMisses.WithLabelValues(key.Backend).Inc()
		return nil, ErrCacheMiss
	case err != nil:
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry, err := decodeEntry(stored)
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, err
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.WithLabelValues(key.Backend).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(key.Backend).Inc()
	return entry, nil
}

// Set stores entry until it expires. Entries already past expiry are dropped
// silently.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return errors.New("cache: nil entry")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	stored, err := encodeEntry(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), stored, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheBytesWritten.WithLabelValues(key.Backend).Add(float64(len(stored)))
	return nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// UpdateTTL moves the expiry of a live entry, keeping its data and CachedAt.
func (m *Manager) UpdateTTL(ctx context.Context, key CacheKey, expires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	entry.Expires = expires
	return m.Set(ctx, key, entry)
}
