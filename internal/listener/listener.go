// Package listener drives the reconnect/subscribe/stream state machine
// over the Solana WebSocket transport (SolanaLogClient in transport.go),
// feeding accepted events to the per-mint indexing pipeline. Grounded on
// internal/ingestion/ws_sources.go's per-notification processing loop for
// the state-machine shape.
package listener

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"spinpet-indexer/internal/codec"
	"spinpet-indexer/internal/observability"
	"spinpet-indexer/internal/solana"
)

// State is one node of the listener's connection state machine.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateSubscribing  State = "subscribing"
	StateStreaming    State = "streaming"
	StateBackoff      State = "backoff"
	StateTerminated   State = "terminated"
)

// Config controls reconnect/backoff and watchdog behavior.
type Config struct {
	ProgramID             string
	MaxReconnectAttempts  int
	ReconnectInterval     time.Duration
	MaxBackoff            time.Duration
	WatchdogIdle          time.Duration
	StreamingResetDwell   time.Duration
}

// DefaultConfig mirrors the teacher's DefaultWSConfig-style constructor:
// sane defaults, all overridable.
func DefaultConfig(programID string) Config {
	return Config{
		ProgramID:            programID,
		MaxReconnectAttempts: 20,
		ReconnectInterval:    time.Second,
		MaxBackoff:           30 * time.Second,
		WatchdogIdle:         60 * time.Second,
		StreamingResetDwell:  30 * time.Second,
	}
}

// Listener owns the transport and the parse->route pipeline.
type Listener struct {
	ws     ProgramLogClient
	rpc    solana.RPCClient
	parser *codec.EventParser
	router *MintRouter
	cfg    Config

	state    State
	attempts int

	lastSlot      atomic.Uint64
	lastSignature atomic.Value // string
}

// Position reports the slot and signature of the most recently processed
// notification, for the Postgres checkpoint mirror. Safe to call
// concurrently with Run.
func (l *Listener) Position() (slot uint64, signature string) {
	sig, _ := l.lastSignature.Load().(string)
	return l.lastSlot.Load(), sig
}

// Option configures optional Listener behavior, mirroring the
// functional-option style of internal/solana's ClientOption.
type Option func(*Listener)

// WithRPCClient supplies a unary RPC client used to backfill a
// notification's timestamp via getBlockTime when logsSubscribe doesn't
// carry one. Without it, the listener falls back to local wall-clock time.
func WithRPCClient(rpc solana.RPCClient) Option {
	return func(l *Listener) { l.rpc = rpc }
}

// New builds a Listener over an already-constructed transport client, the
// per-mint router it feeds, and a Codec parser scoped to one program ID.
func New(ws ProgramLogClient, router *MintRouter, cfg Config, opts ...Option) *Listener {
	l := &Listener{
		ws:     ws,
		parser: codec.NewEventParser(cfg.ProgramID),
		router: router,
		cfg:    cfg,
		state:  StateDisconnected,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the listener's current state machine node.
func (l *Listener) State() State { return l.state }

func (l *Listener) setState(s State) {
	l.state = s
	observability.UpdateListenerState(string(s))
}

// Run drives the state machine until ctx is cancelled or attempts are
// exhausted, at which point the listener reaches Terminated.
func (l *Listener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.setState(StateTerminated)
			return
		default:
		}

		switch l.state {
		case StateDisconnected:
			l.setState(StateConnecting)
		case StateConnecting:
			l.setState(StateSubscribing)
		case StateSubscribing:
			notifications, err := l.ws.SubscribeProgramLogs(ctx)
			if err != nil {
				log.Printf("listener: subscribe failed: %v", err)
				l.setState(StateBackoff)
				continue
			}
			l.setState(StateStreaming)
			l.stream(ctx, notifications)
			// stream returns only on watchdog idle, channel close, or ctx done.
			select {
			case <-ctx.Done():
				l.setState(StateTerminated)
				return
			default:
				l.setState(StateBackoff)
			}
		case StateBackoff:
			l.attempts++
			observability.RecordReconnectAttempt()
			if l.attempts > l.cfg.MaxReconnectAttempts {
				l.setState(StateTerminated)
				return
			}
			delay := backoffDelay(l.cfg.ReconnectInterval, l.cfg.MaxBackoff, l.attempts)
			select {
			case <-ctx.Done():
				l.setState(StateTerminated)
				return
			case <-time.After(delay):
			}
			l.setState(StateConnecting)
		case StateTerminated:
			return
		}
	}
}

// stream reads notification frames while StateStreaming holds, decoding
// each log group through Codec and routing accepted events per mint. It
// returns when the watchdog window elapses without a frame, or the
// notification channel closes (transport dropped).
func (l *Listener) stream(ctx context.Context, notifications <-chan LogNotification) {
	streamStart := time.Now()
	watchdog := time.NewTimer(l.cfg.WatchdogIdle)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}
			if !watchdog.Stop() {
				<-watchdog.C
			}
			watchdog.Reset(l.cfg.WatchdogIdle)

			if time.Since(streamStart) >= l.cfg.StreamingResetDwell {
				l.attempts = 0
			}

			observability.UpdateHighestSlot(notif.Slot)
			l.lastSlot.Store(uint64(notif.Slot))
			l.lastSignature.Store(notif.Signature)
			events, stats := l.parser.ParseLogs(notif.Logs, notif.Signature, uint64(notif.Slot), l.eventTimestampMs(ctx, notif.Slot))
			if stats.DecodeErrors > 0 {
				log.Printf("listener: %d decode errors in signature %s", stats.DecodeErrors, notif.Signature)
				for i := 0; i < stats.DecodeErrors; i++ {
					observability.RecordDecodeError()
				}
			}
			for i := 0; i < stats.UnknownDiscriminator; i++ {
				observability.RecordUnknownDiscriminator()
			}
			for _, ev := range events {
				observability.RecordEventDecoded(string(ev.Kind))
				l.router.Route(ev)
			}
		case <-watchdog.C:
			log.Printf("listener: watchdog idle timeout, transitioning to backoff")
			observability.RecordWatchdogTimeout()
			return
		}
	}
}

// eventTimestampMs returns the event's timestamp: a getBlockTime lookup for
// the notification's slot if an RPC client was supplied, wall-clock time
// otherwise. logsSubscribe notifications never carry a timestamp of their
// own, so this is the only source of blockTime accuracy.
func (l *Listener) eventTimestampMs(ctx context.Context, slot int64) int64 {
	if l.rpc != nil {
		rpcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		blockTime, err := l.rpc.GetBlockTime(rpcCtx, slot)
		cancel()
		if err == nil && blockTime != nil {
			return *blockTime * 1000
		}
	}
	return time.Now().UnixMilli()
}

// backoffDelay is exponential with a cap, doubling per attempt starting
// from base.
func backoffDelay(base, ceiling time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt && d < ceiling; i++ {
		d *= 2
	}
	if d > ceiling {
		d = ceiling
	}
	return d
}
