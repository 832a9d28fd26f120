package common

import (
	"fmt"
	"time"
)

// TimeLayout is the store-native datetime format, identical to what SQLite's
// datetime('now') produces. All timestamps are UTC.
const TimeLayout = "2006-01-02 15:04:05"

// FormatTime renders t in the store-native layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a store-native timestamp. ISO 8601 variants are accepted
// too, since database files written by other tooling store those.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{TimeLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
