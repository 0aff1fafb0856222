package store

import (
	"context"
	"errors"
	"testing"
)

func TestLiveQueryDeliversTerminalErrorAndCloses(t *testing.T) {
	h := newHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queryErr := errors.New("backend gone")
	calls := 0
	list := func(context.Context, Query) ([]Record, error) {
		calls++
		if calls == 1 {
			return []Record{{ID: "P1"}}, nil
		}
		return nil, queryErr
	}

	ch, err := liveQuery(ctx, h, list, Query{Collection: "protocols"})
	if err != nil {
		t.Fatalf("liveQuery: %v", err)
	}

	snap := waitSnapshot(t, ch)
	if snap.Err != nil || len(snap.Records) != 1 {
		t.Fatalf("first snapshot wrong: %+v", snap)
	}

	h.notify("protocols")

	snap = waitSnapshot(t, ch)
	if !errors.Is(snap.Err, queryErr) {
		t.Fatalf("expected terminal error snapshot, got %+v", snap)
	}
	waitClosed(t, ch)
}

func TestLiveQueryErrorOnFirstSnapshot(t *testing.T) {
	h := newHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queryErr := errors.New("backend gone")
	list := func(context.Context, Query) ([]Record, error) {
		return nil, queryErr
	}

	ch, err := liveQuery(ctx, h, list, Query{Collection: "protocols"})
	if err != nil {
		t.Fatalf("liveQuery: %v", err)
	}

	snap := waitSnapshot(t, ch)
	if !errors.Is(snap.Err, queryErr) {
		t.Fatalf("expected error snapshot, got %+v", snap)
	}
	waitClosed(t, ch)
}
