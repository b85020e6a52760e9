package listener

import (
	"log"
	"sync"
	"time"

	"spinpet-indexer/internal/bus"
	"spinpet-indexer/internal/domain"
	"spinpet-indexer/internal/indexer"
	"spinpet-indexer/internal/observability"
)

// mintIdleTimeout is how long a per-mint worker waits for another event
// before shutting down and freeing its goroutine and channel. A var, not a
// const, so tests can shrink it instead of waiting out the real interval.
var mintIdleTimeout = 2 * time.Minute

// DeltaSink receives a copy of every delta the router publishes, for
// best-effort downstream mirrors (e.g. the ClickHouse candle materializer)
// that must never slow down or block event application.
type DeltaSink interface {
	Offer(domain.Delta)
}

// MintRouter serializes event application per mint: one worker goroutine
// per mint, lazily created on first event and reaped after sitting idle.
// This guarantees Rule 3 monotonicity for a single mint while letting
// different mints apply concurrently.
type MintRouter struct {
	ix    *indexer.Indexer
	bus   *bus.Bus
	sinks []DeltaSink

	mu      sync.Mutex
	workers map[string]chan domain.Event
	pending map[string]int // sends in flight, not yet reflected in the channel's own length
}

// NewMintRouter builds a router over the given Indexer and Bus.
func NewMintRouter(ix *indexer.Indexer, b *bus.Bus) *MintRouter {
	return &MintRouter{
		ix:      ix,
		bus:     b,
		workers: make(map[string]chan domain.Event),
		pending: make(map[string]int),
	}
}

// AddSink registers a best-effort delta observer. Not safe to call once
// Route has started delivering events to workers.
func (r *MintRouter) AddSink(s DeltaSink) {
	r.sinks = append(r.sinks, s)
}

// Route hands one decoded event to its mint's worker, starting the worker
// if this is the first event seen for that mint. The send to ch happens
// outside r.mu so a full channel for one mint never blocks routing for
// every other mint; pending tracks the in-flight send so the idle reaper
// in run doesn't delete the worker out from under it.
func (r *MintRouter) Route(ev domain.Event) {
	r.mu.Lock()
	ch, ok := r.workers[ev.Mint]
	if !ok {
		ch = make(chan domain.Event, 256)
		r.workers[ev.Mint] = ch
		go r.run(ev.Mint, ch)
	}
	r.pending[ev.Mint]++
	r.mu.Unlock()

	ch <- ev

	r.mu.Lock()
	r.pending[ev.Mint]--
	if r.pending[ev.Mint] == 0 {
		delete(r.pending, ev.Mint)
	}
	r.reportWorkerStatsLocked()
	r.mu.Unlock()
}

// reportWorkerStatsLocked updates the mint-worker gauges. Callers must hold r.mu.
func (r *MintRouter) reportWorkerStatsLocked() {
	depth := 0
	for _, ch := range r.workers {
		depth += len(ch)
	}
	observability.UpdateMintWorkerStats(len(r.workers), depth)
}

func (r *MintRouter) run(mint string, ch chan domain.Event) {
	timer := time.NewTimer(mintIdleTimeout)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			r.apply(ev)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(mintIdleTimeout)
		case <-timer.C:
			r.mu.Lock()
			if len(ch) > 0 || r.pending[mint] > 0 {
				// Route enqueued (or is about to enqueue) an event around
				// the instant this case fired; keep the worker alive
				// instead of orphaning it.
				r.mu.Unlock()
				timer.Reset(mintIdleTimeout)
				continue
			}
			delete(r.workers, mint)
			r.reportWorkerStatsLocked()
			r.mu.Unlock()
			return
		}
	}
}

func (r *MintRouter) apply(ev domain.Event) {
	_, deltas, err := r.ix.Apply(ev)
	if err != nil {
		log.Printf("listener: indexer apply failed for mint=%s slot=%d sig=%s: %v", ev.Mint, ev.Slot, ev.Signature, err)
		return
	}
	for _, d := range deltas {
		r.bus.Publish(d)
		for _, sink := range r.sinks {
			sink.Offer(d)
		}
	}
}
