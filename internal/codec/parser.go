package codec

import (
	"encoding/base64"
	"strings"

	"spinpet-indexer/internal/domain"
)

// Stats counts decode outcomes across a batch of log scans, surfaced via
// internal/observability counters by the listener.
type Stats struct {
	Decoded          int
	UnknownDiscriminator int
	DecodeErrors     int
}

// EventParser scans a transaction's log lines for "Program data:" frames
// emitted while the monitored program is on the CPI call stack, and decodes
// each into a domain.Event. Unknown discriminators and malformed payloads
// are counted and skipped, never fatal, per the codec's failure-mode
// contract.
type EventParser struct {
	programID string
}

// NewEventParser builds a parser scoped to a single monitored program id.
func NewEventParser(programID string) *EventParser {
	return &EventParser{programID: programID}
}

// ParseLogs walks logs tracking the CPI program stack the way the original
// implementation does: "Program X invoke [n]" pushes X, "... success"/"...
// failed" pops, and only "Program data:" lines seen while the monitored
// program is somewhere on the stack are treated as event payloads.
func (p *EventParser) ParseLogs(logs []string, signature string, slot uint64, timestampMs int64) ([]domain.Event, Stats) {
	var (
		events        []domain.Event
		stats         Stats
		programStack  []string
		inTargetProgram bool
	)

	for _, line := range logs {
		switch {
		case strings.Contains(line, " invoke ["):
			if id, ok := extractInvokedProgram(line); ok {
				programStack = append(programStack, id)
				if id == p.programID {
					inTargetProgram = true
				}
			}
		case strings.Contains(line, " success") || strings.Contains(line, " failed"):
			if len(programStack) > 0 {
				programStack = programStack[:len(programStack)-1]
			}
			inTargetProgram = false
			for _, id := range programStack {
				if id == p.programID {
					inTargetProgram = true
					break
				}
			}
		}

		if !inTargetProgram || !strings.HasPrefix(line, "Program data: ") {
			continue
		}

		raw := strings.TrimSpace(strings.TrimPrefix(line, "Program data: "))
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			stats.DecodeErrors++
			continue
		}

		event, decoded, err := p.parseEventData(data)
		if err != nil {
			stats.DecodeErrors++
			continue
		}
		if !decoded {
			stats.UnknownDiscriminator++
			continue
		}

		event.Signature = signature
		event.Slot = slot
		event.TimestampMs = timestampMs
		events = append(events, event)
		stats.Decoded++
	}

	return events, stats
}

// parseEventData splits the 8-byte discriminator and dispatches to the
// matching variant decoder. A false second return means "not ours" — never
// a fatal error.
func (p *EventParser) parseEventData(data []byte) (domain.Event, bool, error) {
	if len(data) < 8 {
		return domain.Event{}, false, nil
	}

	var disc Discriminator
	copy(disc[:], data[:8])

	entry, ok := decoders[disc]
	if !ok {
		return domain.Event{}, false, nil
	}

	event, err := entry.decode(data[8:])
	if err != nil {
		return domain.Event{}, false, err
	}
	return event, true, nil
}

// extractInvokedProgram parses "Program <id> invoke [depth]" log lines.
func extractInvokedProgram(line string) (string, bool) {
	const prefix = "Program "
	start := strings.Index(line, prefix)
	if start < 0 {
		return "", false
	}
	rest := line[start+len(prefix):]
	end := strings.Index(rest, " invoke")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
