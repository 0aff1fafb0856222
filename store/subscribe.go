package store

import "context"

// liveQuery implements Subscribe for both store backends: emit the current
// snapshot immediately, then re-query and emit after every change signal for
// the collection. A query failure is delivered as a terminal Snapshot.Err and
// the channel closes; the consumer is expected to keep its last good view.
func liveQuery(ctx context.Context, h *hub, list func(context.Context, Query) ([]Record, error), q Query) (<-chan Snapshot, error) {
	if q.Collection == "" {
		return nil, ErrBadQuery
	}

	sig := h.subscribe(ctx, q.Collection)
	out := make(chan Snapshot, 1)

	go func() {
		defer close(out)

		emit := func() bool {
			records, err := list(ctx, q)
			if ctx.Err() != nil {
				return false
			}
			if err != nil {
				select {
				case out <- Snapshot{Err: err}:
				case <-ctx.Done():
				}
				return false
			}
			select {
			case out <- Snapshot{Records: records}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sig:
				if !ok {
					return
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return out, nil
}
