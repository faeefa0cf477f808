// Package gateway exposes the session manager over a websocket chat
// transport. One connection serves one user; inbound frames become
// session manager calls and outbound conversation traffic becomes
// frames on the same socket.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ewhitt/stratus/internal/session"
)

const (
	// Time allowed to write a frame to the client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the client.
	pongWait = 60 * time.Second

	// Send pings to client with this period. Must be less than pongWait.
	pingPeriod = 15 * time.Second

	// Maximum frame size allowed from client.
	maxMessageSize = 512

	// outboundBuffer is the per-connection outbound frame queue size.
	outboundBuffer = 16
)

// ErrNotConnected indicates outbound traffic for a user with no open
// websocket connection.
var ErrNotConnected = errors.New("user has no active connection")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// SessionController is the slice of the session manager the gateway
// drives.
type SessionController interface {
	Start(ctx context.Context, userID string) error
	RouteText(userID, text string) error
	Cancel(userID string) error
	Stats() session.Stats
}

// Server bridges websocket clients to the session manager. It also
// implements session.Sender, so the manager's outbound traffic flows
// back through the same connection registry.
type Server struct {
	sessions SessionController
	logger   *slog.Logger

	mu    sync.RWMutex
	conns map[string]*conn
}

var _ session.Sender = (*Server)(nil)

// Option configures the server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a gateway with no session controller attached yet.
// The controller is attached separately because the manager needs the
// gateway as its sender before it can exist.
func NewServer(opts ...Option) *Server {
	s := &Server{
		logger: slog.Default(),
		conns:  make(map[string]*conn),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach wires the session controller. Must be called before Handler
// serves traffic.
func (s *Server) Attach(controller SessionController) {
	s.sessions = controller
}

// Handler returns the gateway's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// conn is one user's websocket connection with its outbound queue.
type conn struct {
	userID string
	ws     *websocket.Conn
	send   chan OutboundFrame
	done   chan struct{}
}

// handleSocket upgrades the connection and pumps frames both ways until
// the client goes away.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "missing user parameter", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "user", userID, "error", err)
		return
	}

	c := &conn{
		userID: userID,
		ws:     ws,
		send:   make(chan OutboundFrame, outboundBuffer),
		done:   make(chan struct{}),
	}

	if !s.register(c) {
		_ = ws.WriteJSON(OutboundFrame{Kind: KindError, Text: "user already connected"})
		_ = ws.Close()
		return
	}
	defer s.unregister(c)

	s.logger.Info("client connected", "user", userID)

	go c.writePump()
	// The read pump runs on the handler goroutine so the session context
	// (r.Context()) stays alive exactly as long as the connection.
	s.readPump(r.Context(), c)
}

// register claims the user's connection slot. A user may hold one
// connection at a time.
func (s *Server) register(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conns[c.userID]; exists {
		return false
	}
	s.conns[c.userID] = c
	return true
}

// unregister drops the connection and ends any conversation bound to
// it. The session is parented on the connection context anyway; the
// explicit cancel just retires the record promptly.
func (s *Server) unregister(c *conn) {
	s.mu.Lock()
	delete(s.conns, c.userID)
	s.mu.Unlock()

	close(c.done)

	if err := s.sessions.Cancel(c.userID); err != nil && !errors.Is(err, session.ErrNotStarted) {
		s.logger.Debug("cancel on disconnect failed", "user", c.userID, "error", err)
	}
	s.logger.Info("client disconnected", "user", c.userID)
}

// readPump decodes inbound frames and dispatches them to the session
// manager until the connection drops.
func (s *Server) readPump(ctx context.Context, c *conn) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame InboundFrame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", "user", c.userID, "error", err)
			}
			return
		}
		s.dispatch(ctx, c, frame)
	}
}

// dispatch maps one inbound frame to a session manager call. Rejected
// operations come back to the user as error frames; they never take the
// gateway down.
func (s *Server) dispatch(ctx context.Context, c *conn, frame InboundFrame) {
	var err error
	switch frame.Kind {
	case KindStart:
		err = s.sessions.Start(ctx, c.userID)
	case KindText:
		err = s.sessions.RouteText(c.userID, frame.Text)
	case KindCancel:
		err = s.sessions.Cancel(c.userID)
	default:
		err = fmt.Errorf("unknown frame kind %q", frame.Kind)
	}

	if err != nil {
		s.logger.Debug("rejected frame", "user", c.userID, "kind", frame.Kind, "error", err)
		s.enqueue(c, OutboundFrame{Kind: KindError, Text: err.Error()})
	}
}

// enqueue places a frame on the connection's outbound queue, dropping
// it if the client cannot keep up.
func (s *Server) enqueue(c *conn, frame OutboundFrame) {
	select {
	case c.send <- frame:
	case <-c.done:
	default:
		s.logger.Warn("dropping outbound frame, client too slow", "user", c.userID, "kind", frame.Kind)
	}
}

// writePump serializes all writes to the socket: queued frames plus
// keepalive pings.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// SendMessage implements session.Sender.
func (s *Server) SendMessage(ctx context.Context, userID, message string) error {
	return s.send(ctx, userID, OutboundFrame{Kind: KindMessage, Text: message})
}

// SendChoices implements session.Sender.
func (s *Server) SendChoices(ctx context.Context, userID string, options []string) error {
	return s.send(ctx, userID, OutboundFrame{Kind: KindChoices, Options: options})
}

// SendTyping implements session.Sender.
func (s *Server) SendTyping(ctx context.Context, userID string) error {
	return s.send(ctx, userID, OutboundFrame{Kind: KindTyping})
}

// send queues a frame for the user's connection. The conversation sees
// the failure if the user is gone or the queue never drains.
func (s *Server) send(ctx context.Context, userID string, frame OutboundFrame) error {
	s.mu.RLock()
	c := s.conns[userID]
	s.mu.RUnlock()

	if c == nil {
		return fmt.Errorf("user %s: %w", userID, ErrNotConnected)
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return fmt.Errorf("user %s: %w", userID, ErrNotConnected)
	case <-ctx.Done():
		return fmt.Errorf("sending %s frame: %w", frame.Kind, ctx.Err())
	}
}

// handleHealth reports gateway liveness and session counters.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	payload := struct {
		Status   string        `json:"status"`
		Sessions session.Stats `json:"sessions"`
	}{
		Status:   "ok",
		Sessions: s.sessions.Stats(),
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encoding health response", "error", err)
	}
}
