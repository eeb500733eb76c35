package util

import (
	"strconv"
	"time"
)

// FloorTo aligns t down to the nearest bucket boundary of width d (UTC).
func FloorTo(t time.Time, d time.Duration) time.Time {
	return t.UTC().Truncate(d)
}

// BucketRange returns the start of the trailing recomputation window ending
// at now: the newest bucket plus (buckets-1) full buckets before it.
func BucketRange(now time.Time, d time.Duration, buckets int) time.Time {
	if buckets < 1 {
		buckets = 1
	}
	return FloorTo(now, d).Add(-time.Duration(buckets-1) * d)
}

// ParseTime tries RFC3339 (fractional seconds included) and unix seconds.
// Returns (t, true) if either worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}
