package convert

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedTimestamp is returned when a timestamp field matches none of the
// supported layouts.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// timestampLayouts are tried in order. Layouts without a zone are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Unix parses a timestamp field into Unix seconds. The field is either an
// integer number of seconds or a date/time string.
func Unix(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrMalformedTimestamp)
	}

	if d, err := Decimal(s); err == nil {
		return d.IntPart(), nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}
