package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ThrottleDelay is how long a request waits while the budget is in the warning range.
const ThrottleDelay = 1 * time.Second

// Hash fields of the per-backend state.
const (
	fieldRemaining = "remaining"
	fieldResetAt   = "reset_at"
	fieldUpdatedAt = "updated_at"
)

var (
	rateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "graphql_rate_limit_remaining",
		Help: "Requests remaining in the current backend rate limit window",
	}, []string{"backend"})

	rateLimitBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphql_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to a critical rate limit budget",
	}, []string{"backend"})

	rateLimitThrottlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphql_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low rate limit budget",
	}, []string{"backend"})
)

// Tracker keeps the budget of one backend in Redis and gates requests on it.
type Tracker struct {
	redis   *redis.Client
	backend string
	key     string
	logger  zerolog.Logger
}

// NewTracker creates a tracker for the named backend.
func NewTracker(redisClient *redis.Client, backend string, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:   redisClient,
		backend: backend,
		key:     RedisKey(backend),
		logger:  logger.With().Str("backend", backend).Logger(),
	}
}

// GetState loads the shared budget. A backend that never reported one is
// assumed healthy.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	fields, err := t.redis.HGetAll(ctx, t.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load rate limit state: %w", err)
	}
	if len(fields) == 0 {
		return defaultState(), nil
	}
	return decodeState(fields)
}

func decodeState(fields map[string]string) (*RateLimitState, error) {
	remaining, err := strconv.Atoi(fields[fieldRemaining])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldRemaining, err)
	}
	resetAt, err := strconv.ParseInt(fields[fieldResetAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldResetAt, err)
	}

	state := &RateLimitState{
		Remaining: remaining,
		ResetAt:   time.Unix(resetAt, 0),
	}
	if raw := fields[fieldUpdatedAt]; raw != "" {
		updatedAt, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", fieldUpdatedAt, err)
		}
		state.LastUpdate = time.UnixMilli(updatedAt)
	}
	state.UpdateHealth()
	return state, nil
}

// headerInt reads an integer header. ok is false when the header is absent.
func headerInt(headers http.Header, name string) (value int, ok bool, err error) {
	raw := strings.TrimSpace(headers.Get(name))
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("parse %s header: %w", name, err)
	}
	return value, true, nil
}

// ParseHeaders extracts the budget from response headers. It returns nil, nil
// when the backend sends no rate limit headers.
func ParseHeaders(headers http.Header) (*RateLimitState, error) {
	remaining, ok, err := headerInt(headers, HeaderRemaining)
	if err != nil || !ok {
		return nil, err
	}

	resetSeconds, ok, err := headerInt(headers, HeaderReset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(HeaderReset + " header missing")
	}

	now := time.Now()
	state := &RateLimitState{
		Remaining:  remaining,
		ResetAt:    now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate: now,
	}
	state.UpdateHealth()
	return state, nil
}

// UpdateFromHeaders stores the budget reported by a response. Responses
// without rate limit headers leave the state untouched.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	state, err := ParseHeaders(headers)
	if err != nil || state == nil {
		return err
	}

	// The hash outlives its window by a minute so a silent backend cannot
	// stay blocked.
	expiry := state.TimeUntilReset() + time.Minute

	_, err = t.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, t.key,
			fieldRemaining, state.Remaining,
			fieldResetAt, state.ResetAt.Unix(),
			fieldUpdatedAt, state.LastUpdate.UnixMilli(),
		)
		pipe.Expire(ctx, t.key, expiry)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store rate limit state: %w", err)
	}

	rateLimitRemaining.WithLabelValues(t.backend).Set(float64(state.Remaining))
	t.logState(state)
	return nil
}

func (t *Tracker) logState(state *RateLimitState) {
	level := state.Level()
	var event *zerolog.Event
	switch level {
	case LevelCritical:
		event = t.logger.Error()
	case LevelWarning:
		event = t.logger.Warn()
	default:
		event = t.logger.Debug()
	}
	event.
		Str("level", level.String()).
		Int("remaining", state.Remaining).
		Time("reset_at", state.ResetAt).
		Msg("Rate limit state updated")
}

// ShouldAllowRequest returns false while the budget is critical. In the
// warning range it allows the request after waiting ThrottleDelay.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, err
	}

	switch state.Level() {
	case LevelCritical:
		rateLimitBlocksTotal.WithLabelValues(t.backend).Inc()
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Rate limit critical - blocking request")
		return false, nil

	case LevelWarning:
		rateLimitThrottlesTotal.WithLabelValues(t.backend).Inc()
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Rate limit warning - throttling request")

		timer := time.NewTimer(ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}
