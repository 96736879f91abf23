package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// CacheKey identifies a cached GraphQL response.
type CacheKey struct {
	// Backend is the logical backend name (e.g., "analytics")
	Backend string

	// Query is the GraphQL document text
	Query string

	// Variables are the query variables (e.g., {"pool": "0xabc..."})
	Variables map[string]any
}

// String generates a deterministic cache key string.
// Format: gql:backend:queryhash:var1=val1:var2=val2
//
// Example:
//
//	gql:analytics:3f1c9a0e4b2d7c11:duration=month:pool=0xabc
func (k CacheKey) String() string {
	parts := []string{"gql"}

	if backend := strings.TrimSpace(k.Backend); backend != "" {
		parts = append(parts, backend)
	}

	// Query documents are long and only their identity matters
	parts = append(parts, hashQuery(k.Query))

	// Add variables (sorted for determinism)
	if len(k.Variables) > 0 {
		names := make([]string, 0, len(k.Variables))
		for name := range k.Variables {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%v", name, k.Variables[name]))
		}
	}

	return strings.Join(parts, ":")
}

// hashQuery returns the first 16 hex digits of the SHA-256 of the whitespace
// normalized query, so reformatting a document does not split the cache.
func hashQuery(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}
