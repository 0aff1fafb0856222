package store

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory behind the same contract as
// the persistent store. It backs the engine tests and the provisioning CLI's
// dry-run mode.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*memRecord
	hub     *hub
	now     func() time.Time
}

type memRecord struct {
	info      pathInfo
	data      map[string]any
	rev       int64
	createdAt time.Time
	updatedAt time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*memRecord),
		hub:     newHub(),
		now:     time.Now,
	}
}

// SetClock overrides the write timestamp source. Tests only.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

func (s *MemoryStore) Get(_ context.Context, path string) (*Record, error) {
	if _, err := parsePath(path); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[path]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec.toRecord(path)
	return &out, nil
}

func (s *MemoryStore) Write(_ context.Context, path string, data map[string]any, mode WriteMode, opts ...WriteOption) (*Record, error) {
	var cfg writeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	info, err := parsePath(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	rec := s.write(path, info, data, mode, cfg)
	out := rec.toRecord(path)
	s.mu.Unlock()

	s.hub.notify(info.collection)
	return &out, nil
}

func (s *MemoryStore) Apply(_ context.Context, ops ...WriteOp) ([]Record, error) {
	infos := make([]pathInfo, len(ops))
	for i, op := range ops {
		info, err := parsePath(op.Path)
		if err != nil {
			return nil, err
		}
		infos[i] = info
	}

	s.mu.Lock()
	out := make([]Record, len(ops))
	for i, op := range ops {
		rec := s.write(op.Path, infos[i], op.Data, op.Mode, writeConfig{})
		out[i] = rec.toRecord(op.Path)
	}
	s.mu.Unlock()

	for _, c := range distinctCollections(infos) {
		s.hub.notify(c)
	}
	return out, nil
}

// write assumes s.mu is held.
func (s *MemoryStore) write(path string, info pathInfo, data map[string]any, mode WriteMode, cfg writeConfig) *memRecord {
	now := s.now()
	existing, ok := s.records[path]
	if !ok {
		rec := &memRecord{info: info, data: cloneData(data), rev: 1, createdAt: now, updatedAt: now}
		s.records[path] = rec
		return rec
	}
	if cfg.knownRev > 0 && existing.rev != cfg.knownRev {
		log.Printf("Warning: write to %s clobbers rev %d (caller last saw rev %d)", path, existing.rev, cfg.knownRev)
	}
	if mode == Merge {
		merged := cloneData(existing.data)
		for k, v := range data {
			merged[k] = cloneValue(v)
		}
		existing.data = merged
	} else {
		existing.data = cloneData(data)
	}
	existing.rev++
	existing.updatedAt = now
	return existing
}

func (s *MemoryStore) List(_ context.Context, q Query) ([]Record, error) {
	if q.Collection == "" {
		return nil, ErrBadQuery
	}

	s.mu.RLock()
	var out []Record
	for path, rec := range s.records {
		if rec.info.collection != q.Collection {
			continue
		}
		if q.ProtocolID != "" && rec.info.protocolID != q.ProtocolID {
			continue
		}
		owner, status, requestID := indexValues(rec.info, rec.data)
		if q.OwnerID != "" && owner != q.OwnerID {
			continue
		}
		if !q.matchesStatus(status) {
			continue
		}
		if q.RequestID != "" && requestID != q.RequestID {
			continue
		}
		out = append(out, rec.toRecord(path))
	}
	s.mu.RUnlock()

	applyOrder(out, q)
	return out, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error) {
	return liveQuery(ctx, s.hub, s.List, q)
}

func (r *memRecord) toRecord(path string) Record {
	return Record{
		ID:         r.info.id,
		Path:       path,
		Collection: r.info.collection,
		Data:       normalizeData(r.data),
		Rev:        r.rev,
		CreatedAt:  r.createdAt,
		UpdatedAt:  r.updatedAt,
	}
}

func distinctCollections(infos []pathInfo) []string {
	seen := make(map[string]bool, len(infos))
	var out []string
	for _, info := range infos {
		if !seen[info.collection] {
			seen[info.collection] = true
			out = append(out, info.collection)
		}
	}
	sort.Strings(out)
	return out
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneData(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
