package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func waitSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("snapshot channel closed unexpectedly")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func waitClosed(t *testing.T, ch <-chan Snapshot) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for channel close")
		}
	}
}

func TestMemoryStoreWriteAndGet(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.SetClock(fixedClock(now))
	ctx := context.Background()

	rec, err := s.Write(ctx, "protocols/P1", map[string]any{
		"status":    "pending",
		"title":     "Trial of X",
		"ownerId":   "u1",
		"createdAt": "2026-03-10T09:00:00Z",
	}, Replace)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if rec.Rev != 1 {
		t.Fatalf("expected rev 1, got %d", rec.Rev)
	}
	if rec.ID != "P1" || rec.Collection != "protocols" {
		t.Fatalf("unexpected identity: id=%q collection=%q", rec.ID, rec.Collection)
	}

	got, err := s.Get(ctx, "protocols/P1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	created, ok := got.Data["createdAt"].(time.Time)
	if !ok {
		t.Fatalf("createdAt not normalized to time.Time, got %T", got.Data["createdAt"])
	}
	if !created.Equal(now) {
		t.Fatalf("createdAt = %v, want %v", created, now)
	}
	if !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(now) {
		t.Fatalf("record timestamps not taken from clock")
	}
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "protocols/missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreMergeAndReplace(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Write(ctx, "protocols/P1", map[string]any{"status": "pending", "title": "Trial"}, Replace); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	merged, err := s.Write(ctx, "protocols/P1", map[string]any{"status": "accepted"}, Merge)
	if err != nil {
		t.Fatalf("merge write: %v", err)
	}
	if merged.Rev != 2 {
		t.Fatalf("expected rev 2 after merge, got %d", merged.Rev)
	}
	if merged.Data["status"] != "accepted" || merged.Data["title"] != "Trial" {
		t.Fatalf("merge lost keys: %+v", merged.Data)
	}

	replaced, err := s.Write(ctx, "protocols/P1", map[string]any{"status": "archived"}, Replace)
	if err != nil {
		t.Fatalf("replace write: %v", err)
	}
	if replaced.Rev != 3 {
		t.Fatalf("expected rev 3 after replace, got %d", replaced.Rev)
	}
	if _, ok := replaced.Data["title"]; ok {
		t.Fatalf("replace kept old key title: %+v", replaced.Data)
	}
}

func TestMemoryStoreRejectsMalformedPaths(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	bad := []string{"protocols", "protocols/P1/documents", "protocols//documents/D1", ""}
	for _, path := range bad {
		if _, err := s.Write(ctx, path, map[string]any{}, Replace); !errors.Is(err, ErrBadPath) {
			t.Fatalf("path %q: expected ErrBadPath, got %v", path, err)
		}
	}
}

func TestMemoryStoreListFiltersAndOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seed := []struct {
		path string
		data map[string]any
	}{
		{"protocols/P1", map[string]any{"status": "pending", "ownerId": "u1", "title": "A", "createdAt": int64(1000)}},
		{"protocols/P2", map[string]any{"status": "accepted", "ownerId": "u1", "title": "B", "createdAt": int64(2000)}},
		{"protocols/P3", map[string]any{"status": "pending", "ownerId": "u2", "title": "C", "createdAt": int64(3000)}},
		{"protocols/P1/documents/D1", map[string]any{"status": "pending", "title": "doc"}},
	}
	for _, row := range seed {
		if _, err := s.Write(ctx, row.path, row.data, Replace); err != nil {
			t.Fatalf("seed %s: %v", row.path, err)
		}
	}

	recs, err := s.List(ctx, Query{Collection: "protocols", OwnerID: "u1", Statuses: []string{"pending"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "P1" {
		t.Fatalf("expected only P1, got %+v", recs)
	}

	recs, err = s.List(ctx, Query{Collection: "protocols", OrderBy: "createdAt", Descending: true})
	if err != nil {
		t.Fatalf("List ordered: %v", err)
	}
	if len(recs) != 3 || recs[0].ID != "P3" || recs[2].ID != "P1" {
		t.Fatalf("unexpected descending order: %+v", recs)
	}

	recs, err = s.List(ctx, Query{Collection: "documents", ProtocolID: "P1"})
	if err != nil {
		t.Fatalf("List documents: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "D1" {
		t.Fatalf("expected nested document, got %+v", recs)
	}

	if _, err := s.List(ctx, Query{}); !errors.Is(err, ErrBadQuery) {
		t.Fatalf("expected ErrBadQuery for empty collection, got %v", err)
	}
}

func TestMemoryStoreApplyBatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Write(ctx, "protocols/P1/assignments/A1", map[string]any{"status": "pending", "slot": "primary", "reviewerId": "r1"}, Replace); err != nil {
		t.Fatalf("seed: %v", err)
	}

	recs, err := s.Apply(ctx,
		WriteOp{Path: "protocols/P1/assignments/A1", Data: map[string]any{"status": "superseded"}, Mode: Merge},
		WriteOp{Path: "protocols/P1/assignments/A2", Data: map[string]any{"status": "pending", "slot": "primary", "reviewerId": "r2"}, Mode: Replace},
	)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Rev != 2 || recs[0].Data["status"] != "superseded" {
		t.Fatalf("first op not merged: %+v", recs[0])
	}
	if recs[0].Data["slot"] != "primary" {
		t.Fatalf("merge dropped slot: %+v", recs[0].Data)
	}
	if recs[1].Rev != 1 || recs[1].Data["reviewerId"] != "r2" {
		t.Fatalf("second op not created: %+v", recs[1])
	}
}

func TestMemoryStoreSubscribe(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx, Query{Collection: "protocols"})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	snap := waitSnapshot(t, ch)
	if len(snap.Records) != 0 {
		t.Fatalf("initial snapshot should be empty, got %d records", len(snap.Records))
	}

	if _, err := s.Write(ctx, "protocols/P1", map[string]any{"status": "pending", "title": "Trial", "ownerId": "u1"}, Replace); err != nil {
		t.Fatalf("Write: %v", err)
	}
	snap = waitSnapshot(t, ch)
	if len(snap.Records) != 1 || snap.Records[0].ID != "P1" {
		t.Fatalf("expected P1 in snapshot, got %+v", snap.Records)
	}

	// Writes to other collections must not wake this subscription; the next
	// protocols write must.
	if _, err := s.Write(ctx, "users/u1/notifications/N1", map[string]any{"title": "hi"}, Replace); err != nil {
		t.Fatalf("Write notification: %v", err)
	}
	if _, err := s.Write(ctx, "protocols/P2", map[string]any{"status": "pending", "title": "Second", "ownerId": "u1"}, Replace); err != nil {
		t.Fatalf("Write P2: %v", err)
	}
	snap = waitSnapshot(t, ch)
	if len(snap.Records) != 2 {
		t.Fatalf("expected 2 records after second write, got %d", len(snap.Records))
	}

	cancel()
	waitClosed(t, ch)
}

func TestSubscribeRequiresCollection(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Subscribe(context.Background(), Query{}); !errors.Is(err, ErrBadQuery) {
		t.Fatalf("expected ErrBadQuery, got %v", err)
	}
}

func TestDistinctCollections(t *testing.T) {
	infos := []pathInfo{
		{collection: "assignments"},
		{collection: "history"},
		{collection: "assignments"},
	}
	got := distinctCollections(infos)
	if len(got) != 2 || got[0] != "assignments" || got[1] != "history" {
		t.Fatalf("unexpected collections: %v", got)
	}
}
