package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// LogNotification is one logsNotification message for the tracked program:
// the transaction's raw log lines plus the slot and signature it landed in.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}

// ProgramLogClient streams transaction logs mentioning a single Solana
// program ID over logsSubscribe. Listener depends on this interface rather
// than SolanaLogClient directly so tests can stub the transport.
type ProgramLogClient interface {
	// SubscribeProgramLogs opens the logsSubscribe stream for the client's
	// program ID.
	SubscribeProgramLogs(ctx context.Context) (<-chan LogNotification, error)
	Close() error
}

// TransportConfig controls the underlying WebSocket connection's
// reconnect, ping, and I/O timeout behavior.
type TransportConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff between attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is how often a ping frame is sent to keep the
	// connection alive.
	PingInterval time.Duration
	// ReadTimeout bounds a single read from the socket.
	ReadTimeout time.Duration
	// WriteTimeout bounds a single write to the socket.
	WriteTimeout time.Duration
}

// DefaultTransportConfig returns sane defaults for a logsSubscribe stream.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// SolanaLogClient implements ProgramLogClient over gorilla/websocket's
// logsSubscribe method, reconnecting and resubscribing to the same program
// ID whenever a read fails. Unlike a general-purpose RPC client, it never
// multiplexes more than one subscription: spinpet tracks exactly one
// program, so there is exactly one logsSubscribe stream to maintain.
type SolanaLogClient struct {
	endpoint  string
	programID string
	config    TransportConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subID and notifyCh describe the one live subscription this client
	// ever holds. resubscribe swaps subID in place after a reconnect
	// without handing the caller a new channel.
	subMu    sync.RWMutex
	subID    int64
	notifyCh chan LogNotification

	pendingSubs   map[uint64]chan int64
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewSolanaLogClient dials endpoint and starts the read and ping loops.
// Logs mentioning programID become available through SubscribeProgramLogs.
func NewSolanaLogClient(ctx context.Context, endpoint, programID string, config *TransportConfig) (*SolanaLogClient, error) {
	cfg := DefaultTransportConfig()
	if config != nil {
		cfg = *config
	}

	c := &SolanaLogClient{
		endpoint:    endpoint,
		programID:   programID,
		config:      cfg,
		pendingSubs: make(map[uint64]chan int64),
		done:        make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

func (c *SolanaLogClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// SubscribeProgramLogs subscribes to logs mentioning the client's program
// ID and returns the channel notifications arrive on. Calling it a second
// time replaces the previous subscription.
func (c *SolanaLogClient) SubscribeProgramLogs(ctx context.Context) (<-chan LogNotification, error) {
	subID, err := c.subscribe(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan LogNotification, 10000)
	c.subMu.Lock()
	c.subID = subID
	c.notifyCh = ch
	c.subMu.Unlock()

	return ch, nil
}

// subscribe sends the logsSubscribe request for the client's program ID
// and waits for its confirmation. It doesn't touch subID/notifyCh, so it
// doubles as the resubscribe step after a reconnect.
func (c *SolanaLogClient) subscribe(ctx context.Context) (int64, error) {
	if c.closed.Load() {
		return 0, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{c.programID}},
			map[string]string{"commitment": "confirmed"},
		},
	}

	confirmCh := make(chan int64, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
		return 0, fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case subID := <-confirmCh:
		return subID, nil
	case <-time.After(30 * time.Second):
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
		return 0, fmt.Errorf("subscription timeout after 30s")
	case <-c.done:
		return 0, fmt.Errorf("client closed")
	case <-ctx.Done():
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
		return 0, ctx.Err()
	}
}

// Close closes the WebSocket connection and the notification channel.
func (c *SolanaLogClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.subMu.Lock()
	if c.notifyCh != nil {
		close(c.notifyCh)
		c.notifyCh = nil
	}
	c.subMu.Unlock()

	c.pendingSubsMu.Lock()
	for id, ch := range c.pendingSubs {
		close(ch)
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from the WebSocket and dispatches them,
// reconnecting with exponential backoff on any read error.
func (c *SolanaLogClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay
		c.handleMessage(message)
	}
}

// reconnect waits delay, redials, and resubscribes to the program ID.
func (c *SolanaLogClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on the next read error.
		return
	}

	c.resubscribe()
}

// resubscribe re-issues logsSubscribe for the program ID after a
// reconnect, swapping subID over to whatever new ID the server assigns
// without disturbing the channel a caller already holds a reference to.
func (c *SolanaLogClient) resubscribe() {
	c.subMu.RLock()
	hadSub := c.notifyCh != nil
	c.subMu.RUnlock()
	if !hadSub {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	newSubID, err := c.subscribe(ctx)
	cancel()
	if err != nil {
		// Failed to resubscribe; the next read error will try again.
		return
	}

	c.subMu.Lock()
	c.subID = newSubID
	c.subMu.Unlock()
}

func (c *SolanaLogClient) handleMessage(message []byte) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 {
		c.handleSubscribeResponse(&resp)
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "logsNotification" {
		c.handleLogsNotification(&notif)
		return
	}

	var errResp struct {
		JSONRPC string `json:"jsonrpc"`
		ID      uint64 `json:"id"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(message, &errResp); err == nil && errResp.Error != nil {
		log.Printf("listener: subscribe error response: code=%d msg=%s", errResp.Error.Code, errResp.Error.Message)
	}
}

func (c *SolanaLogClient) handleSubscribeResponse(resp *wsSubscribeResponse) {
	c.pendingSubsMu.Lock()
	ch, ok := c.pendingSubs[resp.ID]
	if ok {
		delete(c.pendingSubs, resp.ID)
	}
	c.pendingSubsMu.Unlock()

	if ok {
		select {
		case ch <- resp.Result:
		default:
		}
	}
}

func (c *SolanaLogClient) handleLogsNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	c.subMu.RLock()
	subID := c.subID
	ch := c.notifyCh
	c.subMu.RUnlock()

	if ch == nil || notif.Params.Subscription != subID {
		return
	}

	value := notif.Params.Result.Value
	logNotif := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		logNotif.Slot = notif.Params.Result.Context.Slot
	}

	// Block until we can send - never drop events.
	select {
	case ch <- logNotif:
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *SolanaLogClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// Solana logsSubscribe wire types.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
