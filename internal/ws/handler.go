// Package ws is the connection gateway: it authenticates the vendor's
// WebSocket upgrade, owns the per-call read loop and heartbeat, and
// guarantees session teardown on close.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/callwise/relay/internal/metrics"
	"github.com/callwise/relay/internal/session"
	"github.com/callwise/relay/internal/turn"
	"github.com/callwise/relay/internal/twilio"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the shared collaborators for all call sessions.
type HandlerConfig struct {
	Validator         *twilio.Validator
	Registry          *session.Registry
	Coordinator       *turn.Coordinator
	SystemPrompt      string
	DefaultLanguage   string
	HistoryCap        int
	HeartbeatInterval time.Duration
	MaxConcurrent     int
}

// Handler manages WebSocket call sessions with admission control.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}
}

// NewHandler creates a gateway handler with a concurrency limit.
func NewHandler(cfg HandlerConfig) *Handler {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 100
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 20 * time.Second
	}
	return &Handler{
		cfg: cfg,
		sem: make(chan struct{}, maxConc),
	}
}

// inbound is the discriminated union of control messages received over the
// connection.
type inbound struct {
	Type  string `json:"type"`
	Token string `json:"token"`
	Last  bool   `json:"last"`
	Lang  string `json:"lang"`

	// setup metadata, informational only
	SessionID string `json:"sessionId"`
	CallSID   string `json:"callSid"`
}

// ServeHTTP authenticates and upgrades the connection, then runs the call
// session. The signature is checked before the handshake completes: a forged
// request never allocates a session. Returns 503 at capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Validator.Validate(r, nil) {
		metrics.AuthFailures.Inc()
		slog.Warn("rejected unsigned upgrade request", "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.CallsActive.Inc()
	metrics.CallsTotal.Inc()
	defer metrics.CallsActive.Dec()

	h.runSession(conn)
}

func (h *Handler) runSession(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := session.New(uuid.NewString(), h.cfg.SystemPrompt, h.cfg.DefaultLanguage, h.cfg.HistoryCap)
	h.cfg.Registry.Add(sess)

	writer := newConnWriter(conn)

	// Teardown is unconditional: a dangling generation or a leaked heartbeat
	// after close is a defect.
	defer func() {
		sess.Close()
		writer.Close()
		h.cfg.Registry.Remove(sess.ID)
		slog.Info("call ended", "session_id", sess.ID)
	}()

	slog.Info("call started", "session_id", sess.ID)

	go h.heartbeat(ctx, writer)
	h.readLoop(ctx, conn, sess, writer)
}

// readLoop dispatches inbound frames until the connection closes. One
// malformed frame is dropped without ending the call.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session, writer *connWriter) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("connection closed", "session_id", sess.ID, "error", err)
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			metrics.MessagesDropped.Inc()
			slog.Warn("malformed frame dropped", "session_id", sess.ID, "error", err)
			continue
		}

		sess.Touch()

		switch msg.Type {
		case "setup":
			slog.Info("session setup", "session_id", sess.ID, "call_sid", msg.CallSID, "vendor_session_id", msg.SessionID)
		case "prompt":
			h.cfg.Coordinator.HandlePrompt(ctx, sess, writer, msg.Token, msg.Last, msg.Lang)
		case "interrupt":
			h.cfg.Coordinator.HandleInterrupt(sess)
		default:
			metrics.MessagesDropped.Inc()
			slog.Warn("unknown message type dropped", "session_id", sess.ID, "type", msg.Type)
		}
	}
}

// heartbeat pings the peer at a fixed interval, independent of turns, until
// the session context is cancelled.
func (h *Handler) heartbeat(ctx context.Context, writer *connWriter) {
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			writer.Ping()
		}
	}
}

// connWriter serializes writes to the connection and turns writes after
// close into no-ops, so the coordinator and heartbeat never race the socket
// or crash on a closed channel.
type connWriter struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func newConnWriter(conn *websocket.Conn) *connWriter {
	return &connWriter{conn: conn}
}

// Send writes one outbound message. Implements turn.Sender.
func (w *connWriter) Send(msg turn.Outbound) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if err := w.conn.WriteJSON(msg); err != nil {
		slog.Warn("write outbound", "error", err)
	}
}

// Ping sends a liveness control frame.
func (w *connWriter) Ping() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
		slog.Warn("write ping", "error", err)
	}
}

// Close marks the writer closed; subsequent writes are dropped.
func (w *connWriter) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}
