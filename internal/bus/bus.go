// Package bus is the real-time fanout layer: clients subscribe to
// (mint, channel) pairs and receive a bounded backfill from Store followed
// by live deltas, with a bounded per-subscription outbox so a slow
// consumer never blocks the publisher.
//
// Grounded on the connection-map / per-mint-subscriber-index / reverse-index
// shape of the original service's SubscriptionManager, reimplemented over Go
// channels instead of Socket.IO rooms.
package bus

import (
	"sync"

	"spinpet-indexer/internal/domain"
	"spinpet-indexer/internal/observability"
)

// Channel selects what a subscription receives.
type Channel string

const (
	ChannelRawEvents Channel = "raw_events"
	ChannelCandles   Channel = "candles"
)

// outboxCapacity bounds memory per subscription regardless of consumer
// speed; a full outbox drops its oldest frame and increments Lag.
const outboxCapacity = 256

// Frame is one message delivered to a subscription's outbox.
type Frame struct {
	Delta domain.Delta
}

// Subscription is a single client's live registration for one (mint,
// channel[, interval]) filter.
type Subscription struct {
	ConnID   string
	SubID    string
	Mint     string
	Channel  Channel
	Interval domain.Interval // only meaningful for ChannelCandles

	outbox chan Frame

	mu  sync.Mutex
	lag uint64
}

// Outbox returns the channel subscribers should range over to receive
// frames. Closed when Unsubscribe or connection cleanup runs.
func (s *Subscription) Outbox() <-chan Frame { return s.outbox }

// Lag returns the number of frames dropped because the outbox was full.
func (s *Subscription) Lag() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lag
}

func (s *Subscription) deliver(f Frame) {
	select {
	case s.outbox <- f:
		return
	default:
	}
	// Outbox full: drop the oldest queued frame, then retry once. Bus.Publish
	// holds only a shared read lock, so it does not serialize deliveries
	// itself; another publisher for the same mint could race this. In this
	// module each mint's deltas are published from that mint's single
	// MintRouter worker, so deliveries to one subscription do not overlap.
	select {
	case <-s.outbox:
		s.mu.Lock()
		s.lag++
		s.mu.Unlock()
		observability.RecordOutboxDrop()
	default:
	}
	select {
	case s.outbox <- f:
	default:
	}
}

func (s *Subscription) matches(mint string, d domain.Delta) bool {
	if s.Mint != mint {
		return false
	}
	switch s.Channel {
	case ChannelRawEvents:
		return d.Kind == domain.DeltaRawEvent
	case ChannelCandles:
		return d.Kind != domain.DeltaRawEvent && d.Interval == s.Interval
	default:
		return false
	}
}

// key identifies a subscription within a connection for the reverse index.
type key struct {
	connID string
	subID  string
}

// Bus holds the live subscription registry. It never touches Store itself
// beyond what a caller supplies for backfill; see HistoryFunc.
type Bus struct {
	mu sync.RWMutex

	// mint -> subscriptions targeting that mint, mirroring mint_subscribers.
	byMint map[string][]*Subscription
	// (connID, subID) -> subscription, for exact lookups on Unsubscribe.
	byKey map[key]*Subscription
	// connID -> keys, for O(subs-for-conn) cleanup on disconnect.
	byConn map[string][]key
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{
		byMint: make(map[string][]*Subscription),
		byKey:  make(map[key]*Subscription),
		byConn: make(map[string][]key),
	}
}

// Subscribe registers a new live filter and returns it. The caller is
// responsible for shipping the backfill history frame before ranging over
// Outbox(), per the backfill-then-live ordering rule.
func (b *Bus) Subscribe(connID, subID, mint string, ch Channel, interval domain.Interval) *Subscription {
	sub := &Subscription{
		ConnID: connID, SubID: subID, Mint: mint, Channel: ch, Interval: interval,
		outbox: make(chan Frame, outboxCapacity),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.byMint[mint] = append(b.byMint[mint], sub)
	k := key{connID, subID}
	b.byKey[k] = sub
	b.byConn[connID] = append(b.byConn[connID], k)
	observability.UpdateSubscriptionsActive(len(b.byKey))
	return sub
}

// Unsubscribe removes one subscription and closes its outbox.
func (b *Bus) Unsubscribe(connID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(key{connID, subID})
}

// CloseConnection reclaims every subscription owned by connID, for use on
// transport disconnect.
func (b *Bus) CloseConnection(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range append([]key(nil), b.byConn[connID]...) {
		b.removeLocked(k)
	}
	delete(b.byConn, connID)
}

func (b *Bus) removeLocked(k key) {
	sub, ok := b.byKey[k]
	if !ok {
		return
	}
	delete(b.byKey, k)
	close(sub.outbox)

	mintSubs := b.byMint[sub.Mint]
	for i, s := range mintSubs {
		if s == sub {
			b.byMint[sub.Mint] = append(mintSubs[:i], mintSubs[i+1:]...)
			break
		}
	}
	conn := b.byConn[k.connID]
	for i, kk := range conn {
		if kk == k {
			b.byConn[k.connID] = append(conn[:i], conn[i+1:]...)
			break
		}
	}
	observability.UpdateSubscriptionsActive(len(b.byKey))
}

// Publish fans a delta out to every matching subscription. Non-blocking:
// a full outbox drops its oldest frame rather than stalling the caller.
func (b *Bus) Publish(d domain.Delta) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.byMint[d.Mint] {
		if sub.matches(d.Mint, d) {
			sub.deliver(Frame{Delta: d})
			observability.RecordDeltaPublished(string(d.Kind))
		}
	}
}
