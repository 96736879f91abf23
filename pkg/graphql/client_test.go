package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"

	"github.com/Sternrassler/explore-client/pkg/cache"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

// newTestClient builds a client against a test server with fast retries.
func newTestClient(t *testing.T, server *httptest.Server, mutate func(*Config)) *Client {
	t.Helper()

	cfg := DefaultConfig("test", server.URL)
	cfg.InitialBackoff = 10 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name:   "valid config",
			config: DefaultConfig("analytics", "https://analytics.example.com/v1/graphql"),
		},
		{
			name:        "missing name",
			config:      DefaultConfig("", "https://analytics.example.com/v1/graphql"),
			expectError: true,
		},
		{
			name:        "missing endpoint",
			config:      DefaultConfig("analytics", ""),
			expectError: true,
		},
		{
			name:        "relative endpoint",
			config:      DefaultConfig("analytics", "/v1/graphql"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client.Name() != "analytics" {
				t.Errorf("Name() = %q, want analytics", client.Name())
			}
			if client.GetCache() != nil {
				t.Error("Cache should be nil without Redis")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("assets", "https://assets.example.com/graphql")

	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if !cfg.Deduplicate {
		t.Error("Deduplicate should be enabled by default")
	}
	if cfg.UserAgent == "" {
		t.Error("UserAgent should not be empty")
	}
}

func TestQuery_Success(t *testing.T) {
	var received payload
	var authParam, userAgent, cacheControl string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		authParam = r.URL.Query().Get("Authorization")
		userAgent = r.Header.Get("User-Agent")
		cacheControl = r.Header.Get("Cache-Control")

		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("invalid request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"explore_pool":[{"address":"0xabc","tvl_usd":"1234.5"}]}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, func(cfg *Config) {
		cfg.AuthToken = "secret"
	})

	req := NewRequest("query Pools($limit: Int) { explore_pool(limit: $limit) { address tvl_usd } }").
		Var("limit", 10).
		CacheControl("no-cache")
	req.OperationName = "Pools"

	resp, err := client.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}

	if got := resp.Field("explore_pool.0.address").String(); got != "0xabc" {
		t.Errorf("address = %q, want 0xabc", got)
	}
	if got := resp.Field("explore_pool.0.tvl_usd").String(); got != "1234.5" {
		t.Errorf("tvl_usd = %q, want 1234.5", got)
	}
	if !resp.HasData() || resp.Cached {
		t.Errorf("unexpected response flags: HasData=%v Cached=%v", resp.HasData(), resp.Cached)
	}

	if authParam != "secret" {
		t.Errorf("Authorization param = %q, want secret", authParam)
	}
	if userAgent != "explore-client/0.1.0" {
		t.Errorf("User-Agent = %q", userAgent)
	}
	if cacheControl != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cacheControl)
	}
	if received.OperationName != "Pools" {
		t.Errorf("operationName = %q, want Pools", received.OperationName)
	}
	if received.Variables["limit"] != float64(10) {
		t.Errorf("limit variable = %v, want 10", received.Variables["limit"])
	}
}

func TestQuery_EmptyQuery(t *testing.T) {
	client, err := New(DefaultConfig("test", "http://localhost:1"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Query(context.Background(), NewRequest("  ")); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Expected ErrEmptyQuery, got %v", err)
	}
	if _, err := client.Query(context.Background(), nil); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Expected ErrEmptyQuery for nil request, got %v", err)
	}
}

func TestQuery_PartialErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"token":{"symbol":"WETH"},"market":null},"errors":[{"message":"market unavailable","path":["market"]}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)

	resp, err := client.Query(context.Background(), NewRequest("{ token { symbol } market { price } }"))
	if err != nil {
		t.Fatalf("Partial responses should not fail, got %v", err)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Message != "market unavailable" {
		t.Errorf("Errors = %v", resp.Errors)
	}
	if resp.Field("token.symbol").String() != "WETH" {
		t.Errorf("partial data lost: %s", resp.Data)
	}
}

func TestQuery_ErrorsWithoutData(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"data":null,"errors":[{"message":"field 'nope' not found"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, err := client.Query(context.Background(), NewRequest("{ nope }"))
	if ClassOf(err) != ErrorClassGraphQL {
		t.Fatalf("Expected graphql error class, got %v", err)
	}

	var gqlErrs GraphQLErrors
	if !errors.As(err, &gqlErrs) || gqlErrs[0].Message != "field 'nope' not found" {
		t.Errorf("Expected wrapped GraphQLErrors, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("GraphQL errors must not be retried, got %d requests", hits.Load())
	}
}

func TestQuery_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)

	resp, err := client.Query(context.Background(), NewRequest("{ ok }"))
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if !resp.Field("ok").Bool() {
		t.Error("Expected ok=true")
	}
	if hits.Load() != 3 {
		t.Errorf("Expected 3 requests, got %d", hits.Load())
	}
}

func TestQuery_RetryExhausted(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server, func(cfg *Config) {
		cfg.MaxAttempts = 2
	})

	_, err := client.Query(context.Background(), NewRequest("{ ok }"))
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("Expected ErrRetryExhausted, got %v", err)
	}

	var backendErr *BackendError
	if !errors.As(err, &backendErr) || backendErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected wrapped 503 BackendError, got %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("Expected 2 requests, got %d", hits.Load())
	}
}

func TestQuery_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, err := client.Query(context.Background(), NewRequest("{ ok }"))
	if ClassOf(err) != ErrorClassClient {
		t.Fatalf("Expected client error class, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 request, got %d", hits.Load())
	}
}

func TestQuery_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway</html>`))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, err := client.Query(context.Background(), NewRequest("{ ok }"))
	if ClassOf(err) != ErrorClassDecode {
		t.Fatalf("Expected decode error class, got %v", err)
	}
}

func TestQuery_Deduplicates(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Query(context.Background(), NewRequest("{ ok }").Var("id", 1))
			errs <- err
		}()
	}

	// Give every caller time to join the in-flight request
	time.Sleep(200 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Query() error: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 backend request, got %d", hits.Load())
	}
}

func TestQuery_CachesWithMaxAge(t *testing.T) {
	redisClient := setupTestRedis(t)

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"data":{"tvl":[{"date":"2023-10-01","tvl":"100.5"}]}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, func(cfg *Config) {
		cfg.Redis = redisClient
	})

	ctx := context.Background()
	newReq := func() *Request {
		return NewRequest("{ tvl { date tvl } }").CacheControl("max-age=86400")
	}

	first, err := client.Query(ctx, newReq())
	if err != nil {
		t.Fatalf("first Query() error: %v", err)
	}
	if first.Cached {
		t.Error("First response should not be cached")
	}

	second, err := client.Query(ctx, newReq())
	if err != nil {
		t.Fatalf("second Query() error: %v", err)
	}
	if !second.Cached {
		t.Error("Second response should be served from cache")
	}
	if second.Field("tvl.0.tvl").String() != "100.5" {
		t.Errorf("cached data mismatch: %s", second.Data)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 backend request, got %d", hits.Load())
	}

	// no-cache bypasses the cache
	if _, err := client.Query(ctx, NewRequest("{ tvl { date tvl } }").CacheControl("no-cache")); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("Expected no-cache to reach the backend, got %d requests", hits.Load())
	}
}

func TestQuery_RateLimitHeaders(t *testing.T) {
	redisClient := setupTestRedis(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "2")
		w.Header().Set("X-RateLimit-Reset", "60")
		w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, func(cfg *Config) {
		cfg.Redis = redisClient
	})

	ctx := context.Background()
	if _, err := client.Query(ctx, NewRequest("{ ok }")); err != nil {
		t.Fatalf("first Query() error: %v", err)
	}

	// Remaining budget is below the critical threshold now
	_, err := client.Query(ctx, NewRequest("{ ok }"))
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
}

func TestQuery_RefreshTriggerServesStaleAndRefreshes(t *testing.T) {
	redisClient := setupTestRedis(t)

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"data":{"tvl":"fresh"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, func(cfg *Config) {
		cfg.Redis = redisClient
	})

	const query = "{ tvl }"
	newReq := func() *Request {
		return NewRequest(query).
			CacheControl("max-age=100").
			WithHeader(cache.RefreshTriggerHeader, "0.9")
	}
	key := cache.CacheKey{Backend: "test", Query: query}

	// 95 of 100 seconds gone: past the trigger, not yet expired.
	cachedAt := time.Now().Add(-95 * time.Second)
	stale := &cache.CacheEntry{
		Data:     []byte(`{"tvl":"stale"}`),
		CachedAt: cachedAt,
		Expires:  cachedAt.Add(100 * time.Second),
	}
	ctx := context.Background()
	if err := client.GetCache().Set(ctx, key, stale); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	resp, err := client.Query(ctx, newReq())
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if !resp.Cached || resp.Field("tvl").String() != "stale" {
		t.Fatalf("expected the stale cached value, got cached=%v data=%s", resp.Cached, resp.Data)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		entry, err := client.GetCache().Get(ctx, key)
		if err == nil && gjson.GetBytes(entry.Data, "tvl").String() == "fresh" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("cache was not refreshed in the background (last err %v)", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if hits.Load() != 1 {
		t.Errorf("Expected 1 backend request, got %d", hits.Load())
	}

	// The refreshed entry is young again.
	resp, err = client.Query(ctx, newReq())
	if err != nil {
		t.Fatal(err)
	}
	if resp.Field("tvl").String() != "fresh" {
		t.Errorf("got %s, want the refreshed value", resp.Data)
	}
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("fresh entry should not trigger another refresh, got %d requests", hits.Load())
	}
}

func TestQuery_WaitsForRetryAfter(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)

	start := time.Now()
	resp, err := client.Query(context.Background(), NewRequest("{ ok }"))
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if !resp.Field("ok").Bool() {
		t.Errorf("unexpected data: %s", resp.Data)
	}
	if hits.Load() != 2 {
		t.Errorf("Expected 2 backend requests, got %d", hits.Load())
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("retried after %v, want at least the 1s Retry-After", elapsed)
	}
}
