// Package testutil provides testing utilities for the explore client.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// MockResponse overrides the whole HTTP response of the mock backend.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// FieldResolver returns the raw JSON value of a root field for the request
// variables.
type FieldResolver func(variables gjson.Result) string

// RecordedRequest is one request received by the mock backend.
type RecordedRequest struct {
	OperationName string
	Query         string
	Variables     gjson.Result
	Header        http.Header
	URL           string
}

// MockGraphQL is a configurable mock GraphQL backend for testing.
//
// Root fields are registered by name. For every request the mock answers
// {"data": {...}} with each registered field whose name occurs in the query
// document; unregistered fields are left out of the response.
type MockGraphQL struct {
	server    *httptest.Server
	mu        sync.RWMutex
	resolvers map[string]FieldResolver
	patterns  map[string]*regexp.Regexp
	override  *MockResponse
	requests  []RecordedRequest
}

// NewMockGraphQL creates a new mock GraphQL server.
func NewMockGraphQL() *MockGraphQL {
	mock := &MockGraphQL{
		resolvers: make(map[string]FieldResolver),
		patterns:  make(map[string]*regexp.Regexp),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockGraphQL) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGraphQL) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockGraphQL) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetField registers a root field answered with a fixed raw JSON value.
func (m *MockGraphQL) SetField(field, raw string) {
	m.SetResolver(field, func(gjson.Result) string { return raw })
}

// SetResolver registers a root field answered by fn.
func (m *MockGraphQL) SetResolver(field string, fn FieldResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[field] = fn
	m.patterns[field] = regexp.MustCompile(`\b` + regexp.QuoteMeta(field) + `\b`)
}

// SetResponse makes every request return resp instead of resolving fields.
// A nil resp restores field resolution.
func (m *MockGraphQL) SetResponse(resp *MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.override = resp
}

// Requests returns the recorded requests.
func (m *MockGraphQL) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockGraphQL) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or false when none was made.
func (m *MockGraphQL) LastRequest() (RecordedRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

func (m *MockGraphQL) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	payload := gjson.ParseBytes(body)
	query := payload.Get("query").String()
	variables := payload.Get("variables")

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		OperationName: payload.Get("operationName").String(),
		Query:         query,
		Variables:     variables,
		Header:        r.Header.Clone(),
		URL:           r.URL.String(),
	})
	override := m.override
	m.mu.Unlock()

	if override != nil {
		writeResponse(w, *override)
		return
	}

	m.mu.RLock()
	fields := make([]string, 0, len(m.resolvers))
	for field, pattern := range m.patterns {
		if pattern.MatchString(query) {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, `"`+field+`":`+m.resolvers[field](variables))
	}
	m.mu.RUnlock()

	writeResponse(w, NewDataResponse(`{`+strings.Join(parts, ",")+`}`))
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewDataResponse creates a 200 OK response carrying a data member.
func NewDataResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"data":` + data + `}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewErrorsResponse creates a 200 OK response carrying only GraphQL errors.
func NewErrorsResponse(messages ...string) MockResponse {
	quoted := make([]string, 0, len(messages))
	for _, message := range messages {
		quoted = append(quoted, `{"message":"`+message+`"}`)
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"data":null,"errors":[` + strings.Join(quoted, ",") + `]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "30",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
