package cache

import (
	"time"
)

// CacheEntry is one cached GraphQL "data" member.
type CacheEntry struct {
	Data     []byte    `json:"data"`
	Expires  time.Time `json:"expires"`
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry creates an entry that expires after ttl.
func NewEntry(data []byte, ttl time.Duration) *CacheEntry {
	now := time.Now()
	return &CacheEntry{
		Data:     data,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}
}

// IsExpired reports whether the entry is past its expiry.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL is the time left before expiry, never negative.
func (e *CacheEntry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}

// Age returns how long ago the entry was cached.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// Lifetime is the full span between caching and expiry.
func (e *CacheEntry) Lifetime() time.Duration {
	return e.Expires.Sub(e.CachedAt)
}

// NeedsRefresh reports whether the entry has lived past trigger, a fraction
// of its lifetime. A trigger outside (0, 1) never fires.
func (e *CacheEntry) NeedsRefresh(trigger float64) bool {
	if trigger <= 0 || trigger >= 1 {
		return false
	}
	lifetime := e.Lifetime()
	if lifetime <= 0 {
		return false
	}
	return float64(e.Age()) >= trigger*float64(lifetime)
}
