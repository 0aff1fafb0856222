package store

import (
	"context"
	"sync"
)

// hub fan-outs change signals to live-query subscribers. A signal only says
// "this collection changed"; each subscriber re-runs its own query and emits
// the resulting snapshot. Signal channels are buffered with capacity one and
// sends never block, so bursts coalesce into a single re-query.
type hub struct {
	mu   sync.RWMutex
	subs map[int]*hubSub
	next int
}

type hubSub struct {
	collection string
	ch         chan struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[int]*hubSub)}
}

// subscribe registers interest in one collection. The returned channel is
// closed and the subscription removed when ctx ends, which stops all further
// signals immediately.
func (h *hub) subscribe(ctx context.Context, collection string) <-chan struct{} {
	sub := &hubSub{collection: collection, ch: make(chan struct{}, 1)}

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch
}

// notify signals every subscriber of the collection.
func (h *hub) notify(collection string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.collection != collection {
			continue
		}
		select {
		case sub.ch <- struct{}{}:
		default:
			// A pending signal already guarantees a re-query.
		}
	}
}
