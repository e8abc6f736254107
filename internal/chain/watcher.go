package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"

	"solana-escrow-kit/internal/observability"
)

// WatcherConfig configures AccountWatcher behavior.
type WatcherConfig struct {
	// ReconnectDelay is initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription confirmation.
	SubscribeTimeout time.Duration
	// Commitment is the commitment level for notifications.
	Commitment string
}

// DefaultWatcherConfig returns default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		Commitment:        "confirmed",
	}
}

// AccountUpdate is one observed change to a watched account.
type AccountUpdate struct {
	Address  solana.PublicKey
	Slot     int64
	Lamports uint64
	Data     []byte
}

// AccountWatcher subscribes to account changes over the Solana WebSocket
// API. Connections that drop are re-established with exponential backoff
// and every watched address is resubscribed.
type AccountWatcher struct {
	endpoint string
	config   WatcherConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to the delivery channel for an address.
	subs   map[int64]*watchedAccount
	subsMu sync.RWMutex

	// pendingSubs maps request ID to the channel waiting for the
	// subscription outcome.
	pendingSubs   map[uint64]chan subscribeResult
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
	reconnects   atomic.Uint64
}

// watchedAccount pairs an address with its delivery channel so the watcher
// can resubscribe after a reconnect.
type watchedAccount struct {
	address solana.PublicKey
	ch      chan AccountUpdate
}

// subscribeResult is the outcome of one accountSubscribe request.
type subscribeResult struct {
	id  int64
	err error
}

// NewAccountWatcher connects to a WebSocket endpoint and starts the read
// and ping loops.
func NewAccountWatcher(ctx context.Context, endpoint string, config *WatcherConfig) (*AccountWatcher, error) {
	cfg := DefaultWatcherConfig()
	if config != nil {
		cfg = *config
	}

	w := &AccountWatcher{
		endpoint:    endpoint,
		config:      cfg,
		subs:        make(map[int64]*watchedAccount),
		pendingSubs: make(map[uint64]chan subscribeResult),
		done:        make(chan struct{}),
	}

	if err := w.connect(ctx); err != nil {
		return nil, err
	}

	w.wg.Add(2)
	go w.readLoop()
	go w.pingLoop()

	return w, nil
}

// connect establishes the WebSocket connection.
func (w *AccountWatcher) connect(ctx context.Context) error {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	w.conn = conn
	return nil
}

// Watch subscribes to changes of a single account. Updates arrive on the
// returned channel until Close.
func (w *AccountWatcher) Watch(ctx context.Context, address solana.PublicKey) (<-chan AccountUpdate, error) {
	if w.closed.Load() {
		return nil, fmt.Errorf("watcher closed")
	}

	subID, err := w.subscribeAccount(ctx, address)
	if err != nil {
		return nil, err
	}

	// Buffered so a burst of notifications does not stall the read loop.
	ch := make(chan AccountUpdate, 1024)
	w.subsMu.Lock()
	w.subs[subID] = &watchedAccount{address: address, ch: ch}
	w.subsMu.Unlock()

	return ch, nil
}

// Reconnects returns how many times the connection has been re-established.
func (w *AccountWatcher) Reconnects() uint64 {
	return w.reconnects.Load()
}

// subscribeAccount sends accountSubscribe and waits for the subscription ID.
func (w *AccountWatcher) subscribeAccount(ctx context.Context, address solana.PublicKey) (int64, error) {
	reqID := w.requestID.Add(1)

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "accountSubscribe",
		Params: []any{
			address.String(),
			map[string]string{
				"encoding":   "base64",
				"commitment": w.config.Commitment,
			},
		},
	}

	confirmCh := make(chan subscribeResult, 1)
	w.pendingSubsMu.Lock()
	w.pendingSubs[reqID] = confirmCh
	w.pendingSubsMu.Unlock()

	dropPending := func() {
		w.pendingSubsMu.Lock()
		delete(w.pendingSubs, reqID)
		w.pendingSubsMu.Unlock()
	}

	w.connMu.Lock()
	if w.conn == nil {
		w.connMu.Unlock()
		dropPending()
		return 0, fmt.Errorf("not connected")
	}
	w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	err := w.conn.WriteJSON(req)
	w.connMu.Unlock()

	if err != nil {
		dropPending()
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case res, ok := <-confirmCh:
		if !ok {
			return 0, fmt.Errorf("watcher closed")
		}
		if res.err != nil {
			return 0, res.err
		}
		return res.id, nil
	case <-time.After(w.config.SubscribeTimeout):
		dropPending()
		return 0, fmt.Errorf("subscription timeout after %s", w.config.SubscribeTimeout)
	case <-w.done:
		return 0, fmt.Errorf("watcher closed")
	case <-ctx.Done():
		dropPending()
		return 0, ctx.Err()
	}
}

// Close closes the WebSocket connection and all update channels.
func (w *AccountWatcher) Close() error {
	if w.closed.Swap(true) {
		return nil
	}

	close(w.done)

	w.connMu.Lock()
	if w.conn != nil {
		w.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		w.conn.Close()
	}
	w.connMu.Unlock()

	// The read loop may be mid-dispatch; channels close only after it exits
	// so no send races a close.
	w.wg.Wait()

	w.subsMu.Lock()
	for id, sub := range w.subs {
		close(sub.ch)
		delete(w.subs, id)
	}
	w.subsMu.Unlock()

	w.pendingSubsMu.Lock()
	for id, ch := range w.pendingSubs {
		close(ch)
		delete(w.pendingSubs, id)
	}
	w.pendingSubsMu.Unlock()

	return nil
}

// readLoop reads messages and dispatches to subscribers, reconnecting on
// connection errors.
func (w *AccountWatcher) readLoop() {
	defer w.wg.Done()

	reconnectDelay := w.config.ReconnectDelay

	for !w.closed.Load() {
		w.connMu.Lock()
		conn := w.conn
		w.connMu.Unlock()

		if conn == nil {
			select {
			case <-w.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(w.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if w.closed.Load() {
				return
			}

			if !w.reconnecting.Swap(true) {
				go w.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > w.config.MaxReconnectDelay {
				reconnectDelay = w.config.MaxReconnectDelay
			}

			select {
			case <-w.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = w.config.ReconnectDelay

		w.handleMessage(message)
	}
}

// reconnect re-establishes the connection and resubscribes every watched
// address.
func (w *AccountWatcher) reconnect(delay time.Duration) {
	defer w.reconnecting.Store(false)

	if w.closed.Load() {
		return
	}

	select {
	case <-w.done:
		return
	case <-time.After(delay):
	}

	w.connMu.Lock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.connect(ctx); err != nil {
		// Next read error triggers another attempt.
		return
	}

	w.reconnects.Add(1)
	observability.RecordReconnect()
	w.resubscribeAll()
}

// resubscribeAll renews subscriptions for every watched address after a
// reconnect, moving delivery channels to the new subscription IDs.
func (w *AccountWatcher) resubscribeAll() {
	w.subsMu.RLock()
	existing := make(map[int64]*watchedAccount, len(w.subs))
	for id, sub := range w.subs {
		existing[id] = sub
	}
	w.subsMu.RUnlock()

	for oldID, sub := range existing {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newID, err := w.subscribeAccount(ctx, sub.address)
		cancel()

		if err != nil {
			// Keep the old mapping; the next reconnect retries.
			continue
		}

		w.subsMu.Lock()
		delete(w.subs, oldID)
		w.subs[newID] = sub
		w.subsMu.Unlock()
	}
}

// handleMessage routes one incoming WebSocket message.
func (w *AccountWatcher) handleMessage(message []byte) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.ID > 0 && (resp.Result > 0 || resp.Error != nil) {
		w.handleSubscribeResponse(&resp)
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "accountNotification" {
		w.handleAccountNotification(&notif)
		return
	}
}

// handleSubscribeResponse resolves a pending subscription with either its
// subscription ID or the server's rejection.
func (w *AccountWatcher) handleSubscribeResponse(resp *wsSubscribeResponse) {
	w.pendingSubsMu.Lock()
	ch, ok := w.pendingSubs[resp.ID]
	if ok {
		delete(w.pendingSubs, resp.ID)
	}
	w.pendingSubsMu.Unlock()

	if !ok {
		return
	}

	res := subscribeResult{id: resp.Result}
	if resp.Error != nil {
		res.err = fmt.Errorf("subscribe rejected: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}

	select {
	case ch <- res:
	default:
	}
}

// handleAccountNotification dispatches an account change to its subscriber.
func (w *AccountWatcher) handleAccountNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	subID := notif.Params.Subscription

	w.subsMu.RLock()
	sub, ok := w.subs[subID]
	w.subsMu.RUnlock()
	if !ok {
		return
	}

	update := AccountUpdate{
		Address:  sub.address,
		Lamports: notif.Params.Result.Value.Lamports,
	}
	if notif.Params.Result.Context != nil {
		update.Slot = notif.Params.Result.Context.Slot
	}
	if len(notif.Params.Result.Value.Data) >= 1 {
		raw, err := base64.StdEncoding.DecodeString(notif.Params.Result.Value.Data[0])
		if err == nil {
			update.Data = raw
		}
	}

	// Block rather than drop; the buffer absorbs bursts.
	select {
	case sub.ch <- update:
	case <-w.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (w *AccountWatcher) pingLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.connMu.Lock()
			if w.conn != nil {
				w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
				// A failed ping surfaces as a read error and triggers
				// reconnect there.
				w.conn.WriteMessage(websocket.PingMessage, nil)
			}
			w.connMu.Unlock()
		}
	}
}

// WebSocket message types.

type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      uint64   `json:"id"`
	Result  int64    `json:"result"` // subscription ID
	Error   *wsError `json:"error,omitempty"`
}

type wsError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
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
	Context *wsContext     `json:"context"`
	Value   wsAccountValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsAccountValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
}
