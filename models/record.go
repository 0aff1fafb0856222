package models

import (
	"fmt"
	"time"

	"protocol-review-api/store"
)

// docReader decodes one schemaless record into a typed model, accumulating
// the first type mismatch it sees. Everything past the store adapter works
// with the typed models, never with raw documents.
type docReader struct {
	entity string
	id     string
	data   map[string]any
	err    error
}

func newDocReader(entity string, r *store.Record) *docReader {
	return &docReader{entity: entity, id: r.ID, data: r.Data}
}

func (d *docReader) fail(key, want string, got any) {
	if d.err == nil {
		d.err = fmt.Errorf("%s %s: field %q: expected %s, got %T", d.entity, d.id, key, want, got)
	}
}

func (d *docReader) str(key string) string {
	v, ok := d.data[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(key, "string", v)
		return ""
	}
	return s
}

func (d *docReader) requiredStr(key string) string {
	s := d.str(key)
	if s == "" && d.err == nil {
		d.err = fmt.Errorf("%s %s: field %q is required", d.entity, d.id, key)
	}
	return s
}

func (d *docReader) timeAt(key string) time.Time {
	v, ok := d.data[key]
	if !ok || v == nil {
		return time.Time{}
	}
	t, ok := v.(time.Time)
	if !ok {
		// The adapter normalizes timestamps before records leave it; a
		// non-time value here is a real shape violation.
		d.fail(key, "time", v)
		return time.Time{}
	}
	return t
}

func (d *docReader) timePtr(key string) *time.Time {
	t := d.timeAt(key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func (d *docReader) intVal(key string) int {
	v, ok := d.data[key]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		d.fail(key, "number", v)
		return 0
	}
}

func (d *docReader) boolVal(key string) bool {
	v, ok := d.data[key]
	if !ok || v == nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		d.fail(key, "bool", v)
		return false
	}
	return b
}

func (d *docReader) mapVal(key string) map[string]any {
	v, ok := d.data[key]
	if !ok || v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		d.fail(key, "object", v)
		return nil
	}
	return m
}

func (d *docReader) listVal(key string) []any {
	v, ok := d.data[key]
	if !ok || v == nil {
		return nil
	}
	l, ok := v.([]any)
	if !ok {
		d.fail(key, "list", v)
		return nil
	}
	return l
}

func (d *docReader) enum(key string, allowed ...string) string {
	s := d.str(key)
	if s == "" || d.err != nil {
		return s
	}
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	if d.err == nil {
		d.err = fmt.Errorf("%s %s: field %q: unknown value %q", d.entity, d.id, key, s)
	}
	return s
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
