// Package graphql provides the HTTP client used to talk to GraphQL backends,
// with rate limiting, response caching, request deduplication and retries.
package graphql

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/explore-client/pkg/cache"
	"github.com/Sternrassler/explore-client/pkg/ratelimit"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 32 << 20

// Client is a GraphQL client bound to one backend.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	group       singleflight.Group
	refreshes   sync.WaitGroup
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Name labels the backend in logs, metrics and cache keys (e.g., "analytics")
	Name string

	// Endpoint is the GraphQL HTTP endpoint
	Endpoint string

	// AuthToken is sent as the Authorization query parameter when set
	AuthToken string

	// UserAgent header sent with every request
	UserAgent string

	// Redis enables the response cache and shared rate limit state (optional)
	Redis *redis.Client

	// Timeout per HTTP attempt
	Timeout time.Duration

	// Retry
	MaxAttempts    int           // Overrides the per-class attempt limit when > 0
	InitialBackoff time.Duration // Overrides the per-class initial backoff when > 0

	// Deduplicate collapses identical in-flight queries into one request
	Deduplicate bool
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(name, endpoint string) Config {
	return Config{
		Name:        name,
		Endpoint:    endpoint,
		UserAgent:   "explore-client/0.1.0",
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		Deduplicate: true,
	}
}

// New creates a new GraphQL client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("backend name is required")
	}

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", cfg.Endpoint)
	}

	if cfg.AuthToken != "" {
		query := endpoint.Query()
		query.Set("Authorization", cfg.AuthToken)
		endpoint.RawQuery = query.Encode()
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().
		Str("component", "graphql-client").
		Str("backend", cfg.Name).
		Logger()

	client := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint: endpoint.String(),
		config:   cfg,
		logger:   logger,
	}

	if cfg.Redis != nil {
		client.rateLimiter = ratelimit.NewTracker(cfg.Redis, cfg.Name, logger)
		client.cache = cache.NewManager(cfg.Redis)
	}

	return client, nil
}

// Name returns the backend name.
func (c *Client) Name() string {
	return c.config.Name
}

// Query executes a GraphQL request: cache lookup, deduplication, rate limit
// gate, HTTP round trip with retries, envelope decoding and cache update.
//
// A response carrying GraphQL errors next to data is returned as-is so callers
// can use the partial data. A response with errors and no data fails with a
// *BackendError of class ErrorClassGraphQL.
func (c *Client) Query(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(c.config.Name).Observe(time.Since(startTime).Seconds())
	}()

	directives := cache.ParseCacheControl(req.Header)
	cacheKey := cache.CacheKey{
		Backend:   c.config.Name,
		Query:     req.Query,
		Variables: req.Variables,
	}
	useCache := c.cache != nil && directives.Cacheable()

	if useCache {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().
				Str("operation", req.OperationName).
				Dur("age", entry.Age()).
				Msg("Serving response from cache")
			requestsTotal.WithLabelValues(c.config.Name, "cached").Inc()
			if entry.NeedsRefresh(directives.RefreshTrigger) {
				c.refreshInBackground(ctx, req, cacheKey, directives)
			}
			return &Response{Data: entry.Data, Cached: true}, nil
		case err != cache.ErrCacheMiss:
			c.logger.Warn().Err(err).Msg("Cache get error")
		}
	}

	var (
		resp *Response
		err  error
	)
	if c.config.Deduplicate {
		var (
			value  any
			shared bool
		)
		value, err, shared = c.group.Do(cacheKey.String(), func() (any, error) {
			return c.execute(ctx, req)
		})
		if shared {
			deduplicatedTotal.WithLabelValues(c.config.Name).Inc()
			c.logger.Debug().Str("operation", req.OperationName).Msg("Request deduplicated")
		}
		if err == nil {
			resp = value.(*Response)
		}
	} else {
		resp, err = c.execute(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if useCache {
		c.store(ctx, req, cacheKey, directives, resp)
	}

	return resp, nil
}

// store caches a complete response. Responses with GraphQL errors are not
// cached.
func (c *Client) store(ctx context.Context, req *Request, key cache.CacheKey, d cache.Directives, resp *Response) {
	if len(resp.Errors) > 0 || !resp.HasData() {
		return
	}
	if err := c.cache.Set(ctx, key, cache.NewEntry(resp.Data, d.MaxAge)); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
		return
	}
	c.logger.Debug().
		Str("operation", req.OperationName).
		Dur("ttl", d.MaxAge).
		Msg("Cached response")
}

// refreshInBackground re-runs a cached query detached from the caller's
// context. Concurrent triggers for the same key share one refresh.
func (c *Client) refreshInBackground(ctx context.Context, req *Request, key cache.CacheKey, d cache.Directives) {
	c.refreshes.Add(1)
	ch := c.group.DoChan("refresh:"+key.String(), func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Timeout)
		defer cancel()

		resp, err := c.execute(refreshCtx, req)
		if err != nil {
			cacheRefreshesTotal.WithLabelValues(c.config.Name, "error").Inc()
			c.logger.Warn().Err(err).Str("operation", req.OperationName).Msg("Background cache refresh failed")
			return nil, err
		}
		c.store(refreshCtx, req, key, d, resp)
		cacheRefreshesTotal.WithLabelValues(c.config.Name, "ok").Inc()
		return resp, nil
	})
	go func() {
		defer c.refreshes.Done()
		<-ch
	}()
}

// execute performs the rate limit check and the HTTP round trip with retries.
func (c *Client) execute(ctx context.Context, req *Request) (*Response, error) {
	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Rate limit check failed")
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			requestsTotal.WithLabelValues(c.config.Name, "rate_limited").Inc()
			return nil, ErrRateLimited
		}
	}

	body, err := codec.Marshal(payload{
		Query:         req.Query,
		OperationName: req.OperationName,
		Variables:     req.Variables,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	c.logger.Debug().
		Str("operation", req.OperationName).
		Int("variables", len(req.Variables)).
		Msg("Executing GraphQL request")

	var out *Response
	err = retryWithBackoff(ctx, c.config.Name, c.logger, c.retryConfig, func() error {
		resp, err := c.roundTrip(ctx, req, body)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		c.logger.Error().Err(err).Str("operation", req.OperationName).Msg("GraphQL request failed")
		return nil, err
	}

	return out, nil
}

// roundTrip sends one HTTP attempt and decodes the envelope.
func (c *Client) roundTrip(ctx context.Context, req *Request, body []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for name, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		errorsTotal.WithLabelValues(c.config.Name, string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(c.config.Name, "network_error").Inc()
		c.logger.Warn().Err(err).Msg("HTTP request failed")
		return nil, &BackendError{
			Backend:    c.config.Name,
			ErrorClass: ErrorClassNetwork,
			Message:    "http request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		errorsTotal.WithLabelValues(c.config.Name, string(ErrorClassNetwork)).Inc()
		return nil, &BackendError{
			Backend:    c.config.Name,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	status := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode >= 400 {
		errorClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(c.config.Name, string(errorClass)).Inc()
		requestsTotal.WithLabelValues(c.config.Name, status).Inc()

		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(errorClass)).
			Msg("GraphQL backend error")

		return nil, &BackendError{
			Backend:    c.config.Name,
			StatusCode: resp.StatusCode,
			ErrorClass: errorClass,
			Message:    resp.Status,
			RetryAfter: parseRetryAfter(resp.Header, time.Now()),
		}
	}

	var decoded Response
	if err := codec.Unmarshal(raw, &decoded); err != nil {
		errorsTotal.WithLabelValues(c.config.Name, string(ErrorClassDecode)).Inc()
		requestsTotal.WithLabelValues(c.config.Name, status).Inc()
		return nil, &BackendError{
			Backend:    c.config.Name,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode response envelope",
			Err:        err,
		}
	}
	requestsTotal.WithLabelValues(c.config.Name, status).Inc()

	if len(decoded.Errors) > 0 {
		if !decoded.HasData() {
			errorsTotal.WithLabelValues(c.config.Name, string(ErrorClassGraphQL)).Inc()
			return nil, &BackendError{
				Backend:    c.config.Name,
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassGraphQL,
				Message:    "response carries errors and no data",
				Err:        decoded.Errors,
			}
		}

		c.logger.Warn().
			Err(decoded.Errors).
			Str("operation", req.OperationName).
			Msg("Partial GraphQL response")
	}

	return &decoded, nil
}

// retryConfig returns the retry configuration for an error class with the
// client overrides applied.
func (c *Client) retryConfig(errorClass ErrorClass) RetryConfig {
	config := RetryConfigForErrorClass(errorClass)
	if c.config.MaxAttempts > 0 {
		config.MaxAttempts = c.config.MaxAttempts
	}
	if c.config.InitialBackoff > 0 {
		config.InitialBackoff = c.config.InitialBackoff
		if config.MaxBackoff < config.InitialBackoff {
			config.MaxBackoff = config.InitialBackoff
		}
	}
	return config
}

// Close waits for background cache refreshes, then releases idle connections.
func (c *Client) Close() error {
	c.refreshes.Wait()
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil when Redis is not configured.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
