// Package replay walks a mint's already-indexed event log back out of
// Store in stored order, for offline inspection and auditing. It never
// re-applies events through the Indexer: every event is already durable
// and Indexer.Apply's dedup check would make a second pass a no-op, so
// replay here means "read back what happened," not "rebuild state."
//
// Grounded on the teacher's replay.Runner/ReplayEngine split: a Runner
// loads and orders events, an external ReplayEngine consumes them one at
// a time in deterministic order.
package replay

import (
	"context"
	"errors"

	"spinpet-indexer/internal/domain"
	"spinpet-indexer/internal/query"
	"spinpet-indexer/internal/store"
)

// pageSize bounds how many events Runner pulls from Store per Scan call.
const pageSize = 500

// errMismatchedRange is returned when only one of from/to is given; a
// partial bound would make replay output depend on when it was run.
var errMismatchedRange = errors.New("replay: fromTsMs and toTsMs must both be zero or both be set")

// ReplayEngine processes events in the order Store stored them: ascending
// by (slot, event kind, signature), which subsumes Rule 3's (slot,
// signature) ordering for events sharing a mint.
type ReplayEngine interface {
	OnEvent(ctx context.Context, event domain.Event) error
}

// Runner reads one mint's event log out of Store, page by page.
type Runner struct {
	q *query.Query
}

// NewRunner builds a Runner over the given read-only Query surface.
func NewRunner(q *query.Query) *Runner {
	return &Runner{q: q}
}

// Run walks every stored event for mint, optionally restricted to
// [fromTsMs, toTsMs) when both bounds are non-zero, feeding each to
// engine in stored order. Passing only one of from/to is rejected as
// non-deterministic, mirroring the teacher's own from/to pairing rule.
func (r *Runner) Run(ctx context.Context, mint string, fromTsMs, toTsMs int64, engine ReplayEngine) error {
	if (fromTsMs != 0) != (toTsMs != 0) {
		return errMismatchedRange
	}

	var cursor []byte
	for {
		events, cerr := r.q.ListEvents(mint, cursor, pageSize, query.OrderAsc)
		if cerr != nil {
			return cerr
		}
		if len(events) == 0 {
			return nil
		}
		for _, ev := range events {
			if fromTsMs != 0 && (ev.TimestampMs < fromTsMs || ev.TimestampMs >= toTsMs) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := engine.OnEvent(ctx, ev); err != nil {
				return err
			}
		}
		if len(events) < pageSize {
			return nil
		}
		last := events[len(events)-1]
		cursor = nextCursorAfter(store.TokenEventKey(mint, last.Slot, last.Kind, last.Signature))
	}
}

// nextCursorAfter returns the lexicographically-next key after key, so a
// forward Scan seeded with it resumes strictly past the last row already
// consumed.
func nextCursorAfter(key []byte) []byte {
	next := append([]byte(nil), key...)
	return append(next, 0x00)
}
