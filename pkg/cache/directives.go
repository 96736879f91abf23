package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RefreshTriggerHeader carries the fraction of an entry's lifetime after
// which it is refreshed in the background while still being served.
const RefreshTriggerHeader = "X-Agnostic-Cache-Refresh-Trigger"

// Directives are the caching instructions a caller attaches to a query. The
// analytics backend honors the same headers server side.
type Directives struct {
	NoCache bool
	NoStore bool
	MaxAge  time.Duration

	// RefreshTrigger is in (0, 1) when set, zero otherwise.
	RefreshTrigger float64
}

// ParseCacheControl reads Cache-Control and the refresh trigger header.
// Unknown directives and malformed values are ignored.
func ParseCacheControl(header http.Header) Directives {
	var d Directives
	if header == nil {
		return d
	}

	for _, value := range header.Values("Cache-Control") {
		for _, directive := range strings.Split(value, ",") {
			d.apply(directive)
		}
	}

	if raw := strings.TrimSpace(header.Get(RefreshTriggerHeader)); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f > 0 && f < 1 {
			d.RefreshTrigger = f
		}
	}

	return d
}

func (d *Directives) apply(directive string) {
	name, arg, _ := strings.Cut(strings.TrimSpace(directive), "=")
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "no-cache":
		d.NoCache = true
	case "no-store":
		d.NoStore = true
	case "max-age":
		seconds, err := strconv.Atoi(strings.Trim(strings.TrimSpace(arg), `"`))
		if err == nil && seconds > 0 {
			d.MaxAge = time.Duration(seconds) * time.Second
		}
	}
}

// Cacheable reports whether a response may be served from and stored in the cache.
func (d Directives) Cacheable() bool {
	return !d.NoCache && !d.NoStore && d.MaxAge > 0
}
