package listener

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinpet-indexer/internal/bus"
	"spinpet-indexer/internal/indexer"
	"spinpet-indexer/internal/solana/stub"
	"spinpet-indexer/internal/store/memstore"
)

// stubWSClient is a minimal ProgramLogClient test double, in the style of
// internal/solana/stub's RPCClient: a fixed, pre-seeded response set.
type stubWSClient struct {
	notifications chan LogNotification
	subscribeErr  error
	closed        bool
}

func newStubWSClient() *stubWSClient {
	return &stubWSClient{notifications: make(chan LogNotification, 10)}
}

func (s *stubWSClient) SubscribeProgramLogs(ctx context.Context) (<-chan LogNotification, error) {
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	return s.notifications, nil
}

func (s *stubWSClient) Close() error {
	s.closed = true
	return nil
}

func TestListenerReachesStreamingOnSuccessfulSubscribe(t *testing.T) {
	ws := newStubWSClient()
	ms := memstore.New()
	router := NewMintRouter(indexer.New(ms), bus.New())
	cfg := DefaultConfig("Prog111")
	cfg.WatchdogIdle = 50 * time.Millisecond

	l := New(ws, router, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateStreaming, l.State())

	cancel()
	<-done
	assert.Equal(t, StateTerminated, l.State())
}

func TestListenerBacksOffOnSubscribeError(t *testing.T) {
	ws := newStubWSClient()
	ws.subscribeErr = context.DeadlineExceeded
	ms := memstore.New()
	router := NewMintRouter(indexer.New(ms), bus.New())
	cfg := DefaultConfig("Prog111")
	cfg.ReconnectInterval = 5 * time.Millisecond
	cfg.MaxReconnectAttempts = 1

	l := New(ws, router, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	l.Run(ctx)
	assert.Equal(t, StateTerminated, l.State())
	assert.Equal(t, 2, l.attempts) // one attempt, then MaxReconnectAttempts exceeded
}

func TestListenerWatchdogTransitionsToBackoffOnIdle(t *testing.T) {
	ws := newStubWSClient()
	ms := memstore.New()
	router := NewMintRouter(indexer.New(ms), bus.New())
	cfg := DefaultConfig("Prog111")
	cfg.WatchdogIdle = 10 * time.Millisecond
	cfg.ReconnectInterval = 5 * time.Millisecond
	cfg.MaxReconnectAttempts = 1

	l := New(ws, router, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	l.Run(ctx)
	assert.Equal(t, StateTerminated, l.State())
	require.GreaterOrEqual(t, l.attempts, 1)
}

func TestEventTimestampMsUsesRPCBlockTimeWhenAvailable(t *testing.T) {
	ws := newStubWSClient()
	ms := memstore.New()
	router := NewMintRouter(indexer.New(ms), bus.New())
	rpc := stub.NewRPCClient()
	rpc.AddBlockTime(42, 1700000000)

	l := New(ws, router, DefaultConfig("Prog111"), WithRPCClient(rpc))
	assert.Equal(t, int64(1700000000)*1000, l.eventTimestampMs(context.Background(), 42))
}

func TestEventTimestampMsFallsBackToWallClockWithoutRPCData(t *testing.T) {
	ws := newStubWSClient()
	ms := memstore.New()
	router := NewMintRouter(indexer.New(ms), bus.New())
	rpc := stub.NewRPCClient() // no block time seeded for slot 7

	l := New(ws, router, DefaultConfig("Prog111"), WithRPCClient(rpc))
	before := time.Now().UnixMilli()
	got := l.eventTimestampMs(context.Background(), 7)
	assert.GreaterOrEqual(t, got, before)
}

func TestEventTimestampMsFallsBackToWallClockWithoutRPCClient(t *testing.T) {
	ws := newStubWSClient()
	ms := memstore.New()
	router := NewMintRouter(indexer.New(ms), bus.New())

	l := New(ws, router, DefaultConfig("Prog111"))
	before := time.Now().UnixMilli()
	got := l.eventTimestampMs(context.Background(), 7)
	assert.GreaterOrEqual(t, got, before)
}

func TestBackoffDelayGrowsExponentiallyAndCaps(t *testing.T) {
	base := 10 * time.Millisecond
	ceiling := 100 * time.Millisecond
	assert.Equal(t, base, backoffDelay(base, ceiling, 1))
	assert.Equal(t, 2*base, backoffDelay(base, ceiling, 2))
	assert.Equal(t, 4*base, backoffDelay(base, ceiling, 3))
	assert.Equal(t, ceiling, backoffDelay(base, ceiling, 10))
}
