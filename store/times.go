package store

import (
	"strings"
	"time"
)

// The store accepts timestamps in whatever shape the writer produced:
// time.Time, RFC3339 strings, epoch seconds or milliseconds, or a
// {seconds,nanos} map. normalizeData converts all of them to time.Time
// before a document leaves the adapter, so no caller coerces timestamps.

const epochMillisFloor = int64(1e12)

func isTimeKey(key string) bool {
	return strings.HasSuffix(key, "At") ||
		strings.HasSuffix(key, "Date") ||
		strings.HasSuffix(key, "Deadline") ||
		key == "deadline"
}

// normalizeData deep-copies the document and normalizes timestamp-like
// values, recursing into nested maps and lists.
func normalizeData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = normalizeValue(k, v)
	}
	return out
}

func normalizeValue(key string, v any) any {
	switch val := v.(type) {
	case map[string]any:
		if isTimeKey(key) {
			if t, ok := coerceTime(val); ok {
				return t
			}
		}
		return normalizeData(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue("", item)
		}
		return out
	default:
		if isTimeKey(key) {
			if t, ok := coerceTime(v); ok {
				return t
			}
		}
		return v
	}
}

// coerceTime converts the supported timestamp encodings to time.Time.
// Unrecognized values are passed through untouched by the caller.
func coerceTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t, true
			}
		}
	case float64:
		return epochTime(int64(val)), true
	case int64:
		return epochTime(val), true
	case int:
		return epochTime(int64(val)), true
	case map[string]any:
		secs, ok := numberValue(val["seconds"])
		if !ok {
			return time.Time{}, false
		}
		nanos, _ := numberValue(val["nanos"])
		return time.Unix(secs, nanos).UTC(), true
	}
	return time.Time{}, false
}

func epochTime(n int64) time.Time {
	if n >= epochMillisFloor {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

func numberValue(v any) (int64, bool) {
	switch val := v.(type) {
	case float64:
		return int64(val), true
	case int64:
		return val, true
	case int:
		return int64(val), true
	}
	return 0, false
}
