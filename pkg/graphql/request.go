package graphql

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/tidwall/gjson"
)

// Request is one GraphQL operation.
type Request struct {
	// OperationName selects the operation when the document holds several
	OperationName string

	// Query is the GraphQL document text
	Query string

	// Variables are sent alongside the document
	Variables map[string]any

	// Header is merged into the HTTP request. A Cache-Control header with
	// max-age enables the local response cache for this request.
	Header http.Header
}

var operationPattern = regexp.MustCompile(`(?m)^\s*(?:query|mutation|subscription)\s+([_A-Za-z][_0-9A-Za-z]*)`)

// OperationNameOf returns the name of the first named operation declared in
// a document, or "" when every operation is anonymous.
func OperationNameOf(document string) string {
	m := operationPattern.FindStringSubmatch(document)
	if m == nil {
		return ""
	}
	return m[1]
}

// NewRequest creates a request for a query document. OperationName is taken
// from the document so it always names a declared operation.
func NewRequest(query string) *Request {
	return &Request{
		OperationName: OperationNameOf(query),
		Query:         query,
		Variables:     map[string]any{},
		Header:        http.Header{},
	}
}

// Var sets a variable and returns the request for chaining.
func (r *Request) Var(name string, value any) *Request {
	if r.Variables == nil {
		r.Variables = map[string]any{}
	}
	r.Variables[name] = value
	return r
}

// CacheControl sets the Cache-Control header and returns the request for chaining.
func (r *Request) CacheControl(value string) *Request {
	return r.WithHeader("Cache-Control", value)
}

// WithHeader sets a header and returns the request for chaining.
func (r *Request) WithHeader(name, value string) *Request {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	r.Header.Set(name, value)
	return r
}

// payload is the JSON body of a GraphQL HTTP request.
type payload struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is a decoded GraphQL response envelope. Responses may be shared
// between deduplicated callers and must be treated as read-only.
type Response struct {
	// Data is the raw "data" member
	Data json.RawMessage `json:"data"`

	// Errors carries partial failures reported next to data
	Errors GraphQLErrors `json:"errors,omitempty"`

	// Cached is true when the response was served from the response cache
	Cached bool `json:"-"`
}

// HasData reports whether the response carries a non-null data member.
func (r *Response) HasData() bool {
	if r == nil {
		return false
	}
	data := gjson.ParseBytes(r.Data)
	return data.Exists() && data.Type != gjson.Null
}

// Field looks up a gjson path inside the data member, e.g. "explore_pool.0.address".
func (r *Response) Field(path string) gjson.Result {
	if r == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Data, path)
}
