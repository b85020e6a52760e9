package replay

import (
	"context"
	"fmt"
	"time"

	"spinpet-indexer/internal/domain"
)

// Stats summarizes a replay run, one counter per event kind plus the
// timestamp bounds observed.
type Stats struct {
	Mint           string                     `json:"mint"`
	TotalEvents    int                        `json:"total_events"`
	ByKind         map[domain.EventKind]int   `json:"by_kind"`
	FirstEventTsMs int64                      `json:"first_event_ts_ms"`
	LastEventTsMs  int64                      `json:"last_event_ts_ms"`
}

// LoggingEngine implements ReplayEngine, printing one line per event
// (unless quiet) and accumulating Stats.
type LoggingEngine struct {
	quiet bool
	stats Stats
}

// NewLoggingEngine builds a LoggingEngine scoped to one mint.
func NewLoggingEngine(mint string, quiet bool) *LoggingEngine {
	return &LoggingEngine{
		quiet: quiet,
		stats: Stats{Mint: mint, ByKind: make(map[domain.EventKind]int)},
	}
}

// OnEvent implements ReplayEngine.
func (e *LoggingEngine) OnEvent(ctx context.Context, event domain.Event) error {
	e.stats.TotalEvents++
	e.stats.ByKind[event.Kind]++
	if e.stats.FirstEventTsMs == 0 || event.TimestampMs < e.stats.FirstEventTsMs {
		e.stats.FirstEventTsMs = event.TimestampMs
	}
	if event.TimestampMs > e.stats.LastEventTsMs {
		e.stats.LastEventTsMs = event.TimestampMs
	}
	if !e.quiet {
		fmt.Printf("[%s] slot=%d kind=%s sig=%s\n",
			time.UnixMilli(event.TimestampMs).Format(time.RFC3339Nano),
			event.Slot, event.Kind, event.Signature)
	}
	return nil
}

// Stats returns the accumulated summary.
func (e *LoggingEngine) Stats() Stats { return e.stats }

var _ ReplayEngine = (*LoggingEngine)(nil)
