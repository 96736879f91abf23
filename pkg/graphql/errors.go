package graphql

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRateLimited is returned when the rate limiter blocks a request.
	ErrRateLimited = errors.New("request blocked: rate limit critical")

	// ErrEmptyQuery is returned for requests without a query document.
	ErrEmptyQuery = errors.New("empty query document")
)

// ErrorClass represents a classification of backend errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassGraphQL represents a response carrying GraphQL errors and no data.
	ErrorClassGraphQL ErrorClass = "graphql"

	// ErrorClassDecode represents a response body that is not a GraphQL envelope.
	ErrorClassDecode ErrorClass = "decode"
)

// BackendError represents a failed backend request with additional context.
type BackendError struct {
	Backend    string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error

	// RetryAfter is the wait the backend asked for, zero when it gave none.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s error (status %d): %s: %v",
			e.Backend, e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s error (status %d): %s",
		e.Backend, e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Error is one entry of the GraphQL "errors" array.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLErrors is the full "errors" array of a response.
type GraphQLErrors []Error

// Error implements the error interface.
func (e GraphQLErrors) Error() string {
	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Message)
	}
	return "graphql: " + strings.Join(messages, "; ")
}

// ClassOf returns the class of an error produced by the client, or "" when
// the error did not come from a backend response.
func ClassOf(err error) ErrorClass {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.ErrorClass
	}
	return ""
}

// retryAfterOf returns the Retry-After hint carried by a backend error.
func retryAfterOf(err error) time.Duration {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.RetryAfter
	}
	return 0
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 429:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors will fail the same way again
		return false
	case ErrorClassServer:
		return true
	case ErrorClassRateLimit:
		return true
	case ErrorClassNetwork:
		return true
	case ErrorClassGraphQL, ErrorClassDecode:
		// The backend answered; asking again returns the same document
		return false
	default:
		return false
	}
}
