// Package timestamp provides timestamp coercion for open-shaped item fields.
//
// Store items carry caller-supplied fields whose timestamp values arrive in
// whatever shape the caller used: time.Time, RFC3339 strings, Unix seconds,
// or Unix milliseconds. This package normalizes all of them so components
// like the expiry sweeper can compare against the clock without caring about
// the original representation.
//
// Zero Value Semantics:
//   - ParseTime returns ok=false for unset, unparseable, or zero inputs
//   - a Unix value greater than 1e12 is assumed to be milliseconds,
//     otherwise seconds
package timestamp

import (
	"strconv"
	"time"
)

// ParseTime coerces an arbitrary field value into a time.Time.
// Supported inputs: time.Time, *time.Time, RFC3339 strings, numeric Unix
// seconds or milliseconds (int, int32, int64, float64, json.Number-style
// numeric strings). Returns ok=false when the value is nil, empty, zero,
// or not coercible.
func ParseTime(input any) (time.Time, bool) {
	if input == nil {
		return time.Time{}, false
	}

	switch v := input.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v, true

	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true

	case int64:
		return fromUnix(v)

	case int:
		return fromUnix(int64(v))

	case int32:
		return fromUnix(int64(v))

	case float64:
		if v == 0 {
			return time.Time{}, false
		}
		if v > 1e12 {
			return time.UnixMilli(int64(v)), true
		}
		return time.UnixMilli(int64(v * 1000)), true

	case string:
		if v == "" {
			return time.Time{}, false
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			return fromUnix(ts)
		}
		if ts, err := strconv.ParseFloat(v, 64); err == nil {
			return ParseTime(ts)
		}
		return time.Time{}, false

	default:
		return time.Time{}, false
	}
}

// fromUnix interprets a raw integer as Unix milliseconds when it is larger
// than 1e12 (mid-2001 expressed in milliseconds), otherwise as seconds.
func fromUnix(v int64) (time.Time, bool) {
	if v == 0 {
		return time.Time{}, false
	}
	if v > 1e12 {
		return time.UnixMilli(v), true
	}
	return time.Unix(v, 0), true
}

// Expired reports whether the field value resolves to a time in the past.
// Unparseable values are never considered expired.
func Expired(input any, now time.Time) bool {
	t, ok := ParseTime(input)
	if !ok {
		return false
	}
	return t.Before(now)
}

// Format renders a time as RFC3339 UTC for event payloads and backups.
// Returns empty string for the zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
