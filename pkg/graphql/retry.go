package graphql

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig describes how often and how patiently one error class is retried.
type RetryConfig struct {
	// MaxAttempts counts the first request.
	MaxAttempts int

	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig applies to error classes without a dedicated policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// retryPolicies: the analytics backend sheds load with 429 under heavy
// dashboards, so rate limits wait longest.
var retryPolicies = map[ErrorClass]RetryConfig{
	ErrorClassServer:    {MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 10 * time.Second, BackoffMultiplier: 2.0},
	ErrorClassRateLimit: {MaxAttempts: 3, InitialBackoff: 5 * time.Second, MaxBackoff: 60 * time.Second, BackoffMultiplier: 2.0},
	ErrorClassNetwork:   {MaxAttempts: 3, InitialBackoff: 2 * time.Second, MaxBackoff: 30 * time.Second, BackoffMultiplier: 2.0},
}

// RetryConfigForErrorClass returns the retry policy of an error class.
func RetryConfigForErrorClass(errorClass ErrorClass) RetryConfig {
	if config, ok := retryPolicies[errorClass]; ok {
		return config
	}
	return DefaultRetryConfig()
}

// grow returns the backoff that follows current, capped at MaxBackoff.
func (rc RetryConfig) grow(current time.Duration) time.Duration {
	return min(time.Duration(float64(current)*rc.BackoffMultiplier), rc.MaxBackoff)
}

// withJitter spreads d over ±20%.
func withJitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP
// date. Missing, malformed or past values yield zero.
func parseRetryAfter(header http.Header, now time.Time) time.Duration {
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return max(time.Duration(seconds)*time.Second, 0)
	}
	if at, err := http.ParseTime(raw); err == nil {
		return max(at.Sub(now), 0)
	}
	return 0
}

// retryWithBackoff runs fn until it succeeds, fails with a class that is not
// retried, or exhausts the attempts of its class. Waits grow exponentially
// with jitter. A Retry-After hint from the backend raises the wait, but never
// past MaxBackoff.
func retryWithBackoff(ctx context.Context, backend string, logger zerolog.Logger, configFor func(ErrorClass) RetryConfig, fn func() error) error {
	var backoff time.Duration

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().Int("attempt", attempt).Msg("Request succeeded after retry")
			}
			return nil
		}

		errorClass := ClassOf(err)
		if !shouldRetry(errorClass) {
			return err
		}
		class := string(errorClass)

		config := configFor(errorClass)
		if attempt >= config.MaxAttempts {
			retryExhaustedTotal.WithLabelValues(backend, class).Inc()
			logger.Warn().
				Str("error_class", class).
				Int("max_attempts", config.MaxAttempts).
				Msg("Retry attempts exhausted")
			return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, err)
		}

		if backoff == 0 {
			backoff = config.InitialBackoff
		}
		wait := withJitter(backoff)
		if hint := retryAfterOf(err); hint > wait {
			wait = min(hint, config.MaxBackoff)
		}

		retriesTotal.WithLabelValues(backend, class).Inc()
		retryBackoffSeconds.WithLabelValues(backend, class).Observe(wait.Seconds())
		logger.Debug().
			Str("error_class", class).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("error_class", class).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}

		backoff = config.grow(backoff)
	}
}
