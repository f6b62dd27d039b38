package utils

import (
	"strings"
	"time"
)

// TimestampKey returns the ordering key used for lexicographic timestamp comparison.
// Any whitespace or 't' date/time separator is unified to 'T' so mixed ISO-like forms order
// chronologically; an empty timestamp yields an empty key and therefore sorts first.
func TimestampKey(ts string) string {
	ts = strings.TrimSpace(ts)
	if len(ts) > 10 && (ts[10] == 't' || strings.IndexByte(" \t\n\v\f\r", ts[10]) >= 0) {
		return ts[:10] + "T" + ts[11:]
	}
	return ts
}

// TimestampBefore reports whether a orders strictly before b.
func TimestampBefore(a, b string) bool {
	return TimestampKey(a) < TimestampKey(b)
}

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
