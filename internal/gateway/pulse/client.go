package pulse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/pulse-sync/internal/domain/panel"
	"github.com/oshokin/pulse-sync/internal/gateway"
)

const (
	// DefaultDialTimeout bounds the websocket handshake and hello exchange.
	DefaultDialTimeout = 10 * time.Second
	// DefaultCallTimeout bounds one command round trip.
	DefaultCallTimeout = 10 * time.Second

	// updateBufferSize bounds pending un-consumed update snapshots.
	updateBufferSize = 16
	// errorBufferSize bounds pending un-consumed failure signals.
	errorBufferSize = 4
)

var (
	// errClientClosed is returned once Close was called.
	errClientClosed = errors.New("gateway client is closed")
	// errNotConnected is returned for commands while disconnected.
	errNotConnected = errors.New("gateway is not connected")
	// errCommandTimeout is returned when a command result never arrived.
	errCommandTimeout = errors.New("gateway command timed out")
	// errUnexpectedHello is returned when the first message is not a hello.
	errUnexpectedHello = errors.New("gateway did not send a hello message")
)

// Client is the websocket gateway.Client implementation. A single reader
// goroutine owns the connection's inbound side: updates are diffed against
// the cached panel state and queued for WaitForUpdate, command results are
// routed to their callers by correlation ID. Reconnection is paced by the
// embedded backoff counter inside WaitForUpdate, so the coordinator never
// sleeps itself.
type Client struct {
	// url is the gateway websocket endpoint.
	url string
	// token authenticates the client.
	token string
	// dialTimeout bounds the handshake and hello exchange.
	dialTimeout time.Duration
	// callTimeout bounds one command round trip.
	callTimeout time.Duration
	// backoff paces reconnect attempts.
	backoff *gateway.Backoff

	// connMu protects the connection handle and outbound writes.
	connMu sync.Mutex
	// conn is the live connection; nil while disconnected.
	conn *websocket.Conn
	// expectClose suppresses the disconnect signal for deliberate closes.
	expectClose bool
	// closed is set once Close was called.
	closed bool
	// retryUntil is the earliest reconnect time after a throttled error.
	retryUntil time.Time

	// stateMu protects the cached panel state below.
	stateMu sync.RWMutex
	// site is the metadata from the hello message.
	site panel.Site
	// status is the last reported panel status.
	status panel.Status
	// zones is the last reported zone list.
	zones []panel.Zone
	// online mirrors the gateway's reported reachability and is forced
	// false while disconnected.
	online bool
	// lastUpdate is the panel-reported refresh timestamp.
	lastUpdate time.Time

	// updates queues diff snapshots for WaitForUpdate.
	updates chan *panel.Snapshot
	// readErrs queues classified failures for WaitForUpdate.
	readErrs chan error

	// pendingMu protects the command correlation table.
	pendingMu sync.Mutex
	// pending maps command IDs to result channels.
	pending map[int64]chan bool
	// nextID is the next command correlation ID.
	nextID int64
}

// Option configures client behaviour.
type Option func(*Client)

// WithDialTimeout bounds the handshake and hello exchange.
func WithDialTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.dialTimeout = timeout
		}
	}
}

// WithCallTimeout bounds one command round trip.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithBackoff replaces the reconnect backoff bounds.
func WithBackoff(initial, maximum time.Duration) Option {
	return func(c *Client) {
		c.backoff = gateway.NewBackoff(initial, maximum)
	}
}

// Dial connects to the gateway, performs the hello exchange and returns a
// ready client. Authentication rejections surface as *gateway.AuthError.
func Dial(ctx context.Context, url, token string, opts ...Option) (*Client, error) {
	client := &Client{
		url:         url,
		token:       token,
		dialTimeout: DefaultDialTimeout,
		callTimeout: DefaultCallTimeout,
		backoff:     gateway.NewBackoff(gateway.DefaultInitialBackoff, gateway.DefaultMaxBackoff),
		updates:     make(chan *panel.Snapshot, updateBufferSize),
		readErrs:    make(chan error, errorBufferSize),
		pending:     make(map[int64]chan bool, 4),
	}

	for _, opt := range opts {
		opt(client)
	}

	if err := client.connect(ctx); err != nil {
		return nil, err
	}

	return client, nil
}

// connect dials the gateway, reads the hello message and starts the reader.
func (c *Client) connect(ctx context.Context) error {
	dialer := &websocket.Dialer{
		HandshakeTimeout: c.dialTimeout,
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return &gateway.AuthError{Reason: resp.Status}
		}

		return fmt.Errorf("dial gateway: %w", err)
	}

	var hello ServerMessage

	_ = conn.SetReadDeadline(time.Now().Add(c.dialTimeout))

	if err = conn.ReadJSON(&hello); err != nil {
		_ = conn.Close()

		return fmt.Errorf("read hello: %w", err)
	}

	_ = conn.SetReadDeadline(time.Time{})

	if hello.Type != TypeHello || hello.Site == nil || hello.State == nil {
		_ = conn.Close()

		return errUnexpectedHello
	}

	if _, err = c.applyState(hello.State); err != nil {
		_ = conn.Close()

		return err
	}

	c.stateMu.Lock()
	c.site = decodeSite(hello.Site)
	c.stateMu.Unlock()

	c.connMu.Lock()
	c.conn = conn
	c.expectClose = false
	c.retryUntil = time.Time{}
	c.connMu.Unlock()

	go c.readLoop(conn)

	return nil
}

// readLoop owns the inbound side of one connection.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			c.handleDisconnect(err)

			return
		}

		switch msg.Type {
		case TypeUpdate:
			if msg.State == nil {
				continue
			}

			snapshot, err := c.applyState(msg.State)
			if err != nil {
				// Out-of-domain status: a defect, surfaced as unrecoverable.
				c.dropConn(conn)
				c.pushError(err)

				return
			}

			c.updates <- snapshot
		case TypeResult:
			c.resolvePending(msg.ID, msg.Success)
		case TypeError:
			c.dropConn(conn)
			c.pushError(c.classifyServerError(&msg))

			return
		default:
			// Ignore unknown message types for forward compatibility.
		}
	}
}

// classifyServerError maps a gateway error message to the failure taxonomy.
func (c *Client) classifyServerError(msg *ServerMessage) error {
	switch msg.Code {
	case CodeAuth:
		return &gateway.AuthError{Reason: msg.Message}
	case CodeThrottled:
		retryAt := time.Now().Add(c.backoff.Current())
		if msg.RetryAt != nil {
			retryAt = *msg.RetryAt
		}

		c.connMu.Lock()
		c.retryUntil = retryAt
		c.connMu.Unlock()

		return &gateway.RetryError{RetryAt: retryAt, Err: errors.New(msg.Message)}
	default:
		return fmt.Errorf("gateway error: %s", msg.Message)
	}
}

// handleDisconnect marks the client offline after an unexpected connection
// loss and signals a backoff failure to WaitForUpdate.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()

	expected := c.expectClose
	c.expectClose = false

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	c.connMu.Unlock()

	c.markOffline()
	c.failPending()

	if !expected {
		c.pushError(&gateway.BackoffError{Backoff: c.backoff, Err: err})
	}
}

// dropConn deliberately closes the connection so the subsequent read error
// is not reported a second time.
func (c *Client) dropConn(conn *websocket.Conn) {
	c.connMu.Lock()

	if c.conn == conn {
		c.expectClose = true
		c.conn = nil
	}

	c.connMu.Unlock()

	_ = conn.Close()

	c.markOffline()
	c.failPending()
}

// pushError queues a failure for WaitForUpdate without ever blocking the
// reader.
func (c *Client) pushError(err error) {
	select {
	case c.readErrs <- err:
	default:
	}
}

// markOffline forces the reported gateway flag down while disconnected.
func (c *Client) markOffline() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	c.online = false
}

// applyState diffs the reported panel state against the cache, commits it
// and returns the per-cycle snapshot.
func (c *Client) applyState(state *State) (*panel.Snapshot, error) {
	status := panel.Status(state.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("gateway reported status %q outside the panel domain", state.Status)
	}

	zones := decodeZones(state.Zones)

	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	snapshot := &panel.Snapshot{
		AlarmChanged:   c.status != status,
		ChangedZoneIDs: diffZones(c.zones, zones),
	}

	c.status = status
	c.zones = zones
	c.online = state.Online
	c.lastUpdate = state.LastUpdate

	return snapshot, nil
}

// diffZones returns the sorted IDs of zones that differ between the two
// lists, including zones present on only one side.
func diffZones(previous, current []panel.Zone) []int {
	byID := make(map[int]panel.Zone, len(previous))
	for _, z := range previous {
		byID[z.ID] = z
	}

	changed := make(map[int]struct{}, 4)

	for _, z := range current {
		if old, ok := byID[z.ID]; !ok || old != z {
			changed[z.ID] = struct{}{}
		}

		delete(byID, z.ID)
	}

	// Whatever is left disappeared from the report.
	for id := range byID {
		changed[id] = struct{}{}
	}

	if len(changed) == 0 {
		return nil
	}

	ids := make([]int, 0, len(changed))
	for id := range changed {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}

// WaitForUpdate implements gateway.Client. It reconnects with backoff when
// the connection is down, then blocks for the next diff snapshot or failure.
func (c *Client) WaitForUpdate(ctx context.Context) (*panel.Snapshot, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	select {
	case snapshot := <-c.updates:
		return snapshot, nil
	case err := <-c.readErrs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ensureConnected waits out the current backoff interval or throttle
// deadline, then redials. Dial failures advance the backoff counter and are
// reported through the failure taxonomy.
func (c *Client) ensureConnected(ctx context.Context) error {
	c.connMu.Lock()

	if c.closed {
		c.connMu.Unlock()

		return errClientClosed
	}

	connected := c.conn != nil
	retryUntil := c.retryUntil

	c.connMu.Unlock()

	if connected {
		return nil
	}

	wait := c.backoff.Current()
	if until := time.Until(retryUntil); until > wait {
		wait = until
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := c.connect(ctx); err != nil {
		var authErr *gateway.AuthError
		if errors.As(err, &authErr) {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.backoff.Advance()

		return &gateway.BackoffError{Backoff: c.backoff, Err: err}
	}

	c.backoff.Reset()

	return nil
}

// Arm implements gateway.Client.
func (c *Client) Arm(ctx context.Context, mode panel.ArmMode, force bool) (bool, error) {
	return c.command(ctx, &ClientMessage{
		Type:  TypeArm,
		Mode:  string(mode),
		Force: force,
	})
}

// Disarm implements gateway.Client.
func (c *Client) Disarm(ctx context.Context) (bool, error) {
	return c.command(ctx, &ClientMessage{
		Type: TypeDisarm,
	})
}

// command sends one correlated request and awaits its result.
func (c *Client) command(ctx context.Context, msg *ClientMessage) (bool, error) {
	c.pendingMu.Lock()
	c.nextID++
	id := c.nextID
	result := make(chan bool, 1)
	c.pending[id] = result
	c.pendingMu.Unlock()

	msg.ID = id

	if err := c.send(msg); err != nil {
		c.removePending(id)

		return false, err
	}

	timer := time.NewTimer(c.callTimeout)
	defer timer.Stop()

	select {
	case accepted := <-result:
		return accepted, nil
	case <-ctx.Done():
		c.removePending(id)

		return false, ctx.Err()
	case <-timer.C:
		c.removePending(id)

		return false, errCommandTimeout
	}
}

// send writes one message under the connection mutex.
func (c *Client) send(msg *ClientMessage) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.closed {
		return errClientClosed
	}

	if c.conn == nil {
		return errNotConnected
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.callTimeout))

	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send command: %w", err)
	}

	return nil
}

// resolvePending delivers one command result to its caller.
func (c *Client) resolvePending(id int64, success bool) {
	c.pendingMu.Lock()
	result, ok := c.pending[id]
	delete(c.pending, id)
	c.pendingMu.Unlock()

	if ok {
		result <- success
	}
}

// removePending drops one correlation entry.
func (c *Client) removePending(id int64) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	delete(c.pending, id)
}

// failPending rejects all outstanding commands after a connection loss.
func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	for id, result := range c.pending {
		result <- false

		delete(c.pending, id)
	}
}

// Status implements gateway.Client.
func (c *Client) Status() panel.Status {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return c.status
}

// Zones implements gateway.Client.
func (c *Client) Zones() []panel.Zone {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	zones := make([]panel.Zone, len(c.zones))
	copy(zones, c.zones)

	return zones
}

// Site implements gateway.Client.
func (c *Client) Site() panel.Site {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return c.site
}

// LastUpdate implements gateway.Client.
func (c *Client) LastUpdate() time.Time {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return c.lastUpdate
}

// Online implements gateway.Client.
func (c *Client) Online() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return c.online
}

// Close implements gateway.Client.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.closed = true

	if c.conn != nil {
		c.expectClose = true

		_ = c.conn.Close()
		c.conn = nil
	}

	return nil
}
