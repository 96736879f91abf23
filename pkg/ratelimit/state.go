// Package ratelimit tracks the request budget GraphQL backends advertise in
// X-RateLimit-Remaining and X-RateLimit-Reset response headers, and gates
// requests before the budget runs out. State is shared through Redis so all
// processes talking to the same backend see the same budget.
package ratelimit

import (
	"time"
)

// Response headers carrying the rate limit budget.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Budget thresholds, in remaining requests.
const (
	ThresholdCritical = 5
	ThresholdWarning  = 20
	ThresholdHealthy  = 50
)

// RedisKey names the hash holding the budget of one backend.
func RedisKey(backend string) string {
	return "gql:rate_limit:" + backend
}

// Level is how close a backend is to exhausting its budget.
type Level int

const (
	// LevelHealthy: at or above ThresholdHealthy, or the window has reset.
	LevelHealthy Level = iota
	// LevelNormal: below ThresholdHealthy, requests still flow freely.
	LevelNormal
	// LevelWarning: requests are delayed by ThrottleDelay.
	LevelWarning
	// LevelCritical: requests are refused until the window resets.
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelHealthy:
		return "healthy"
	case LevelNormal:
		return "normal"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// RateLimitState is the last budget a backend reported.
type RateLimitState struct {
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	LastUpdate time.Time `json:"last_update"`
	IsHealthy  bool      `json:"is_healthy"`
}

// defaultState is assumed for a backend that never reported a budget.
func defaultState() *RateLimitState {
	now := time.Now()
	return &RateLimitState{
		Remaining:  100,
		ResetAt:    now.Add(time.Minute),
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// Level classifies the remaining budget. Once ResetAt has passed the budget
// is renewed whatever Remaining says.
func (s *RateLimitState) Level() Level {
	if s.TimeUntilReset() <= 0 {
		return LevelHealthy
	}
	switch {
	case s.Remaining < ThresholdCritical:
		return LevelCritical
	case s.Remaining < ThresholdWarning:
		return LevelWarning
	case s.Remaining < ThresholdHealthy:
		return LevelNormal
	default:
		return LevelHealthy
	}
}

// NeedsCriticalBlock reports whether requests must be refused.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Level() == LevelCritical
}

// NeedsThrottling reports whether requests must be delayed.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Level() == LevelWarning
}

// IsStale reports whether the state is older than maxAge.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// TimeUntilReset is zero once the window has reset.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	return max(time.Until(s.ResetAt), 0)
}

// UpdateHealth recomputes IsHealthy from Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
