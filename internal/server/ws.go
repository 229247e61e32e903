package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/charankosari/voice-agent-relay/internal/config"
	"github.com/charankosari/voice-agent-relay/internal/metrics"
	"github.com/charankosari/voice-agent-relay/internal/protocol"
	"github.com/charankosari/voice-agent-relay/internal/session"
)

// WSServer accepts client WebSocket connections and routes their frames
// to sessions. Binary frames carry audio chunks; text frames carry JSON
// control events.
type WSServer struct {
	server     *http.Server
	upgrader   websocket.Upgrader
	config     *config.ServerConfig
	logger     *slog.Logger
	sessionMgr *session.Manager
	metrics    *metrics.Metrics

	connMu sync.Mutex
	conns  map[*websocket.Conn]struct{}
	wg     sync.WaitGroup
}

// NewWSServer creates a new WebSocket server instance
func NewWSServer(cfg *config.ServerConfig, logger *slog.Logger, sessionMgr *session.Manager, m *metrics.Metrics) *WSServer {
	s := &WSServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.ReadBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				// Browser clients connect from arbitrary origins.
				return true
			},
		},
		config:     cfg,
		logger:     logger,
		sessionMgr: sessionMgr,
		metrics:    m,
		conns:      make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, s.handleConnection)

	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port),
		Handler:     mux,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start begins listening for WebSocket connections
func (s *WSServer) Start() error {
	s.logger.Info("WebSocket server started",
		slog.String("address", s.server.Addr),
		slog.String("path", s.config.Path),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("WebSocket server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the WebSocket server. Shutdown ignores hijacked
// connections, so open clients are closed explicitly before waiting out
// their read loops.
func (s *WSServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping WebSocket server...")

	err := s.server.Shutdown(ctx)
	s.closeConnections()
	s.wg.Wait()
	return err
}

func (s *WSServer) trackConn(conn *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *WSServer) untrackConn(conn *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.conns, conn)
}

func (s *WSServer) closeConnections() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

// handleConnection upgrades the HTTP request and runs the read loop for
// one client session
func (s *WSServer) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	sessionID := uuid.NewString()
	emitter := newWSEmitter(conn)

	sess := s.sessionMgr.CreateSession(sessionID, emitter, func() {
		conn.Close()
	})

	s.logger.Info("Client connected",
		slog.String("session_id", sessionID),
		slog.String("remote_addr", r.RemoteAddr),
	)

	// The handler goroutine is the per-connection reader. Returning would
	// cancel the request context mid-turn, so the loop runs inline.
	s.wg.Add(1)
	s.trackConn(conn)
	defer s.wg.Done()
	defer s.untrackConn(conn)
	defer conn.Close()
	defer s.sessionMgr.RemoveSession(sessionID)

	s.readLoop(r.Context(), conn, sess, sessionID)
}

// readLoop processes inbound frames strictly in arrival order. The turn
// pipeline runs inline, so frames behind a stream-end, including another
// stream-end, are only read once the turn finishes. The session's
// in-flight guard still rejects overlap for transports that deliver
// events concurrently.
func (s *WSServer) readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session, sessionID string) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Connection closed unexpectedly",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()),
				)
			} else {
				s.logger.Info("Client disconnected",
					slog.String("session_id", sessionID),
				)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			sess.HandleChunk(data)

		case websocket.TextMessage:
			s.metrics.RecordControlEvent()

			ev, err := protocol.ParseControlEvent(data)
			if err != nil {
				s.metrics.RecordProtocolError()
				s.logger.Warn("Dropping malformed control event",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()),
				)
				continue
			}

			switch ev.Event {
			case protocol.EventAudioStreamEnd:
				sess.HandleStreamEnd(ctx, ev.Language)
			}

		default:
			// Ping/pong handled by gorilla; anything else is ignored.
		}
	}
}

// wsEmitter adapts a WebSocket connection to the session.Emitter
// interface. gorilla connections support one concurrent writer, so all
// writes go through a mutex.
type wsEmitter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSEmitter(conn *websocket.Conn) *wsEmitter {
	return &wsEmitter{conn: conn}
}

// EmitControl sends a JSON control frame
func (e *wsEmitter) EmitControl(ev *protocol.ControlEvent) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.WriteMessage(websocket.TextMessage, data)
}

// EmitAudio sends synthesized audio as a binary frame
func (e *wsEmitter) EmitAudio(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.WriteMessage(websocket.BinaryMessage, data)
}
