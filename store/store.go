// Package store wraps the persistent record store behind a small contract:
// point reads and writes of schemaless documents addressed by slash paths,
// atomic multi-record batches, one-shot queries, and live queries that emit
// a full snapshot after every relevant change.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// WriteMode selects how Write combines the payload with an existing record.
type WriteMode int

const (
	// Replace overwrites the whole document.
	Replace WriteMode = iota
	// Merge overlays the payload keys onto the existing document.
	Merge
)

var (
	// ErrNotFound is returned by Get when no record exists at the path.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable wraps transient store connectivity failures.
	ErrUnavailable = errors.New("record store unavailable")
	// ErrBadPath is returned for paths that do not alternate collection/id.
	ErrBadPath = errors.New("malformed record path")
	// ErrBadQuery is returned for queries without a collection.
	ErrBadQuery = errors.New("query requires a collection")
)

// Record is one stored document. Data is normalized on read: every
// timestamp-like value arrives as time.Time regardless of how it was stored.
type Record struct {
	ID         string         `json:"id"`
	Path       string         `json:"path"`
	Collection string         `json:"collection"`
	Data       map[string]any `json:"data"`
	Rev        int64          `json:"rev"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Query describes a filtered view over one collection. ProtocolID, OwnerID,
// Statuses and RequestID filter on indexed document keys; OrderBy may name
// any document field and is applied after fetch.
type Query struct {
	Collection string
	ProtocolID string
	OwnerID    string
	Statuses   []string
	RequestID  string
	OrderBy    string
	Descending bool
}

// Snapshot is one emission of a live query: the authoritative set of matching
// records at emission time, not a delta. A non-nil Err is terminal; the
// channel closes after it and the caller keeps its last good snapshot.
type Snapshot struct {
	Records []Record
	Err     error
}

// WriteOp is one element of an atomic batch.
type WriteOp struct {
	Path string
	Data map[string]any
	Mode WriteMode
}

type writeConfig struct {
	knownRev int64
}

// WriteOption adjusts a single Write call.
type WriteOption func(*writeConfig)

// WithKnownRev passes the revision the caller last observed. The write still
// wins, but the store logs a clobber warning when the stored revision has
// moved past it.
func WithKnownRev(rev int64) WriteOption {
	return func(c *writeConfig) { c.knownRev = rev }
}

// Store is the record store contract every engine in this module depends on.
type Store interface {
	Get(ctx context.Context, path string) (*Record, error)
	Write(ctx context.Context, path string, data map[string]any, mode WriteMode, opts ...WriteOption) (*Record, error)
	Apply(ctx context.Context, ops ...WriteOp) ([]Record, error)
	List(ctx context.Context, q Query) ([]Record, error)
	Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error)
}

// pathInfo is the indexable identity carried by a record path.
type pathInfo struct {
	collection string
	id         string
	protocolID string
	userID     string
}

// parsePath validates a collection/id alternating path such as
// "protocols/P1/documents/D1" and extracts the index identity.
func parsePath(path string) (pathInfo, error) {
	segs := strings.Split(path, "/")
	if len(segs) < 2 || len(segs)%2 != 0 {
		return pathInfo{}, fmt.Errorf("%w: %q", ErrBadPath, path)
	}
	for _, s := range segs {
		if s == "" {
			return pathInfo{}, fmt.Errorf("%w: %q", ErrBadPath, path)
		}
	}
	info := pathInfo{
		collection: segs[len(segs)-2],
		id:         segs[len(segs)-1],
	}
	switch segs[0] {
	case "protocols":
		info.protocolID = segs[1]
	case "users":
		info.userID = segs[1]
	}
	return info, nil
}

// indexValues pulls the queryable fields out of the document.
func indexValues(info pathInfo, data map[string]any) (owner, status, requestID string) {
	owner = info.userID
	if v, ok := data["ownerId"].(string); ok && v != "" {
		owner = v
	}
	if v, ok := data["status"].(string); ok {
		status = v
	}
	if v, ok := data["requestId"].(string); ok {
		requestID = v
	}
	return owner, status, requestID
}

func (q Query) matchesStatus(status string) bool {
	if len(q.Statuses) == 0 {
		return true
	}
	for _, s := range q.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// applyOrder sorts a result set by the requested document field. The
// underlying store is not asked to index arbitrary document keys; sorting
// happens here after fetch. Ties and missing fields fall back to path order
// so snapshots stay deterministic.
func applyOrder(records []Record, q Query) {
	sort.SliceStable(records, func(i, j int) bool {
		if q.OrderBy != "" {
			less, ok := lessByField(records[i].Data[q.OrderBy], records[j].Data[q.OrderBy])
			if ok {
				if q.Descending {
					return !less
				}
				return less
			}
		}
		return records[i].Path < records[j].Path
	})
}

// lessByField compares two document values of the same dynamic kind. The
// second return is false when no ordering applies (ties, absent values,
// mixed kinds).
func lessByField(a, b any) (bool, bool) {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok && !av.Equal(bv) {
			return av.Before(bv), true
		}
	case string:
		if bv, ok := b.(string); ok && av != bv {
			return av < bv, true
		}
	case float64:
		if bv, ok := b.(float64); ok && av != bv {
			return av < bv, true
		}
	case int64:
		if bv, ok := b.(int64); ok && av != bv {
			return av < bv, true
		}
	}
	return false, false
}
