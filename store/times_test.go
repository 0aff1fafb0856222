package store

import (
	"testing"
	"time"
)

func TestNormalizeTimestampShapes(t *testing.T) {
	want := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	data := normalizeData(map[string]any{
		"createdAt":    "2026-03-10T09:00:00Z",
		"decisionDate": float64(want.Unix()),
		"deadline":     want.UnixMilli(),
		"completedAt":  map[string]any{"seconds": float64(want.Unix()), "nanos": float64(0)},
		"uploadedAt":   want,
	})

	for _, key := range []string{"createdAt", "decisionDate", "deadline", "completedAt", "uploadedAt"} {
		got, ok := data[key].(time.Time)
		if !ok {
			t.Fatalf("%s: not normalized, got %T", key, data[key])
		}
		if !got.Equal(want) {
			t.Fatalf("%s = %v, want %v", key, got, want)
		}
	}
}

func TestNormalizeRecursesIntoNestedValues(t *testing.T) {
	want := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	data := normalizeData(map[string]any{
		"decisionSummary": map[string]any{"date": "2026-03-10T09:00:00Z"},
		"history": []any{
			map[string]any{"recordedAt": float64(want.Unix())},
		},
	})

	summary := data["decisionSummary"].(map[string]any)
	if got, ok := summary["date"].(time.Time); !ok || !got.Equal(want) {
		t.Fatalf("nested date not normalized: %v (%T)", summary["date"], summary["date"])
	}

	entry := data["history"].([]any)[0].(map[string]any)
	if got, ok := entry["recordedAt"].(time.Time); !ok || !got.Equal(want) {
		t.Fatalf("list entry timestamp not normalized: %v (%T)", entry["recordedAt"], entry["recordedAt"])
	}
}

func TestNormalizeLeavesNonTimeKeysAlone(t *testing.T) {
	data := normalizeData(map[string]any{
		"title":   "2026-03-10T09:00:00Z",
		"version": float64(3),
		"status":  "pending",
	})

	if _, ok := data["title"].(string); !ok {
		t.Fatalf("title coerced unexpectedly: %T", data["title"])
	}
	if data["version"] != float64(3) || data["status"] != "pending" {
		t.Fatalf("non-time values changed: %+v", data)
	}
}

func TestNormalizePassesUnparseableTimestampsThrough(t *testing.T) {
	data := normalizeData(map[string]any{"createdAt": "not a timestamp"})
	if data["createdAt"] != "not a timestamp" {
		t.Fatalf("unparseable value changed: %v", data["createdAt"])
	}
}

func TestIsTimeKey(t *testing.T) {
	cases := map[string]bool{
		"createdAt":    true,
		"decisionDate": true,
		"deadline":     true,
		"newDeadline":  true,
		"status":       false,
		"format":       false,
		"deadlines":    false,
	}
	for key, want := range cases {
		if got := isTimeKey(key); got != want {
			t.Fatalf("isTimeKey(%q) = %v, want %v", key, got, want)
		}
	}
}
