package parse

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for timestamps without a UTC offset. These are
// interpreted as UTC, never as local time.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// TimestampUTC parses an ISO-8601 timestamp string and returns it in
// UTC. If the string carries no offset, UTC is assumed.
func TimestampUTC(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	// RFC 3339 covers both "Z" and explicit "+HH:MM" offsets.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}

	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", s)
}
