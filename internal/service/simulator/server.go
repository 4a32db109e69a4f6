package simulator

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/pulse-sync/internal/domain/panel"
	"github.com/oshokin/pulse-sync/internal/gateway/pulse"
	"github.com/oshokin/pulse-sync/internal/logger"
)

const (
	// DefaultKeepaliveInterval is the pace of unconditional state pushes.
	DefaultKeepaliveInterval = 30 * time.Second

	// writeWait bounds one outbound websocket write.
	writeWait = 10 * time.Second

	// shutdownTimeout bounds the HTTP server drain on exit.
	shutdownTimeout = 5 * time.Second
)

// Options controls the simulated gateway behavior.
type Options struct {
	// ListenAddress is the HTTP listen address, e.g. ":8780".
	ListenAddress string
	// AuthToken is the bearer token clients must present; empty disables
	// authentication.
	AuthToken string
	// Site is the simulated site metadata.
	Site panel.Site
	// Zones is the initial zone list.
	Zones []panel.Zone
	// KeepaliveInterval is the pace of unconditional state pushes.
	KeepaliveInterval time.Duration
	// RejectCommands makes the panel refuse every arm/disarm command.
	RejectCommands bool
}

// session is one connected client with serialized writes.
type session struct {
	// conn is the websocket connection.
	conn *websocket.Conn
	// writeMu serializes writes from the reader, broadcasts and keepalive.
	writeMu sync.Mutex
}

// writeJSON sends one message with a write deadline.
func (s *session) writeJSON(msg *pulse.ServerMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	return s.conn.WriteJSON(msg)
}

// Server is a panel gateway simulator speaking the pulse wire protocol.
// It exists so the monitor binary and integration-style tests can run
// against a live websocket peer.
type Server struct {
	// opts is the simulator configuration.
	opts *Options
	// upgrader performs the HTTP to websocket upgrade.
	upgrader websocket.Upgrader

	// mu protects the panel state and session set.
	mu sync.Mutex
	// status is the simulated panel status.
	status panel.Status
	// zones is the simulated zone list.
	zones []panel.Zone
	// lastUpdate is bumped on every state change and keepalive.
	lastUpdate time.Time
	// sessions tracks connected clients for broadcasts.
	sessions map[*session]struct{}
}

// New creates a simulator with the provided options, applying defaults.
func New(opts *Options) *Server {
	if opts.KeepaliveInterval <= 0 {
		opts.KeepaliveInterval = DefaultKeepaliveInterval
	}

	if opts.Site.ID == "" {
		opts.Site = panel.Site{
			ID:           "sim-1",
			Name:         "Simulated Site",
			Manufacturer: "Pulse Security",
			Model:        "PS-SIM",
			GatewayID:    "sim-gateway-1",
		}
	}

	zones := make([]panel.Zone, len(opts.Zones))
	copy(zones, opts.Zones)

	return &Server{
		opts:       opts,
		status:     panel.StatusOff,
		zones:      zones,
		lastUpdate: time.Now().UTC(),
		sessions:   make(map[*session]struct{}, 4),
	}
}

// Handler returns the HTTP handler exposing the websocket endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	return mux
}

// Run serves the simulator until the context is cancelled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "pulse-simulator")

	s := New(opts)

	httpServer := &http.Server{
		Addr:              opts.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: writeWait,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	go s.keepaliveLoop(ctx)

	logger.InfoKV(ctx, "Simulator listening",
		"address", opts.ListenAddress, "site_id", opts.Site.ID)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// keepaliveLoop pushes the full state to every client on a fixed pace so
// observers get their periodic refresh tick even when nothing changed.
func (s *Server) keepaliveLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.lastUpdate = time.Now().UTC()
			s.mu.Unlock()

			s.broadcast()
		}
	}
}

// handleWS authenticates and upgrades one client, sends the hello and then
// serves commands until the connection closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithKV(r.Context(), "remote_addr", r.RemoteAddr)

	if !s.authorized(r) {
		http.Error(w, "invalid token", http.StatusUnauthorized)

		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ErrorKV(ctx, "Websocket upgrade failed", "error", err)

		return
	}

	sess := &session{conn: conn}

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()

		_ = conn.Close()
	}()

	if err = sess.writeJSON(s.helloMessage()); err != nil {
		logger.ErrorKV(ctx, "Failed to send hello", "error", err)

		return
	}

	logger.Info(ctx, "Client connected")

	for {
		var msg pulse.ClientMessage
		if err = conn.ReadJSON(&msg); err != nil {
			logger.DebugKV(ctx, "Client disconnected", "error", err)

			return
		}

		s.handleCommand(ctx, sess, &msg)
	}
}

// authorized validates the bearer token from the Authorization header or
// the token query parameter.
func (s *Server) authorized(r *http.Request) bool {
	if s.opts.AuthToken == "" {
		return true
	}

	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ") == s.opts.AuthToken
	}

	return r.URL.Query().Get("token") == s.opts.AuthToken
}

// handleCommand applies one arm/disarm request and answers by correlation ID.
func (s *Server) handleCommand(ctx context.Context, sess *session, msg *pulse.ClientMessage) {
	success := false

	switch msg.Type {
	case pulse.TypeArm:
		success = s.applyArm(panel.ArmMode(msg.Mode), msg.Force)
	case pulse.TypeDisarm:
		success = s.applyStatus(panel.StatusOff)
	default:
		logger.WarnKV(ctx, "Unknown command type", "type", msg.Type)
	}

	logger.InfoKV(ctx, "Command handled",
		"type", msg.Type, "mode", msg.Mode, "force", msg.Force, "success", success)

	if err := sess.writeJSON(&pulse.ServerMessage{
		Type:    pulse.TypeResult,
		ID:      msg.ID,
		Success: success,
	}); err != nil {
		logger.ErrorKV(ctx, "Failed to send result", "error", err)

		return
	}

	if success {
		s.broadcast()
	}
}

// applyArm transitions the panel for one arm request. Without force the open
// and tripped zone rule applies, like a real panel.
func (s *Server) applyArm(mode panel.ArmMode, force bool) bool {
	var status panel.Status

	switch mode {
	case panel.ModeAway:
		status = panel.StatusAway
	case panel.ModeHome:
		status = panel.StatusHome
	case panel.ModeNight:
		status = panel.StatusNight
	default:
		return false
	}

	s.mu.Lock()
	armable := force || panel.CanArm(s.zones)
	s.mu.Unlock()

	if !armable {
		return false
	}

	return s.applyStatus(status)
}

// applyStatus commits a status change unless commands are rejected.
func (s *Server) applyStatus(status panel.Status) bool {
	if s.opts.RejectCommands {
		return false
	}

	s.mu.Lock()
	s.status = status
	s.lastUpdate = time.Now().UTC()
	s.mu.Unlock()

	return true
}

// SetZone replaces one zone's state and pushes the change to all clients.
// Unknown IDs append a new zone.
func (s *Server) SetZone(zone panel.Zone) {
	s.mu.Lock()

	replaced := false

	for i, z := range s.zones {
		if z.ID == zone.ID {
			s.zones[i] = zone
			replaced = true

			break
		}
	}

	if !replaced {
		s.zones = append(s.zones, zone)
	}

	s.lastUpdate = time.Now().UTC()

	s.mu.Unlock()

	s.broadcast()
}

// Throttle sends a throttled error with a retry deadline to every connected
// client and drops their connections, like a gateway shedding load.
func (s *Server) Throttle(retryAfter time.Duration) {
	retryAt := time.Now().Add(retryAfter).UTC()

	s.mu.Lock()

	sessions := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}

	s.sessions = make(map[*session]struct{}, 4)

	s.mu.Unlock()

	msg := &pulse.ServerMessage{
		Type:    pulse.TypeError,
		Code:    pulse.CodeThrottled,
		Message: "too many requests",
		RetryAt: &retryAt,
	}

	for _, sess := range sessions {
		_ = sess.writeJSON(msg)
		_ = sess.conn.Close()
	}
}

// helloMessage builds the handshake message with the full state.
func (s *Server) helloMessage() *pulse.ServerMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &pulse.ServerMessage{
		Type:  pulse.TypeHello,
		Site:  pulse.EncodeSite(s.opts.Site),
		State: pulse.EncodeState(s.status, true, s.lastUpdate, s.zones),
	}
}

// broadcast pushes the current state to every connected client.
func (s *Server) broadcast() {
	s.mu.Lock()

	state := pulse.EncodeState(s.status, true, s.lastUpdate, s.zones)

	sessions := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}

	s.mu.Unlock()

	msg := &pulse.ServerMessage{
		Type:  pulse.TypeUpdate,
		State: state,
	}

	for _, sess := range sessions {
		// Write failures are left to the session's reader to notice.
		_ = sess.writeJSON(msg)
	}
}
