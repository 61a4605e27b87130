package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rickgao/comandas/internal/model"
)

// Server accepts WebSocket sessions and delivers frames to them by handle.
type Server struct {
	cfg      ServerConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader

	handler EventHandler

	mu       sync.RWMutex
	sessions map[model.Handle]*session
	closed   bool

	wg sync.WaitGroup
}

// NewServer creates a WebSocket server. SetEventHandler must be called
// before the server accepts connections.
func NewServer(cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[model.Handle]*session),
	}
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: cfg.HandshakeTimeout,
		CheckOrigin:      s.checkOrigin,
	}
	return s
}

// SetEventHandler sets the receiver of session events.
func (s *Server) SetEventHandler(h EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// ServeHTTP upgrades the request and runs the session until it ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	handler := s.handler
	closed := s.closed
	s.mu.RUnlock()

	if closed || handler == nil {
		http.Error(w, "server not accepting connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.logger.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	h := model.NewHandle()
	sess := newSession(context.WithoutCancel(r.Context()), h, conn, s.cfg, s.logger)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sess.close()
		return
	}
	s.sessions[h] = sess
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.logger.Info("new connection", "handle", h.String(), "remote_addr", r.RemoteAddr)
	handler.OnOpen(h)

	go sess.writeLoop()
	go sess.heartbeatLoop()

	sess.readLoop(func(ctx context.Context, data []byte) {
		handler.OnMessage(ctx, h, data)
	})

	sess.close()
	s.mu.Lock()
	delete(s.sessions, h)
	s.mu.Unlock()

	handler.OnClose(h)
	s.logger.Info("connection closed", "handle", h.String())
}

// Send queues payload for delivery to h. It never blocks on the network:
// ErrOutboxFull means the client is not keeping up, ErrConnectionClosed
// means the session is gone.
func (s *Server) Send(ctx context.Context, h model.Handle, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	sess := s.sessions[h]
	s.mu.RUnlock()

	if sess == nil {
		return fmt.Errorf("send to %s: %w", h, ErrConnectionClosed)
	}
	if err := sess.enqueue(payload); err != nil {
		return fmt.Errorf("send to %s: %w", h, err)
	}
	return nil
}

// Disconnect closes the session for h. The EventHandler still receives
// OnClose for it.
func (s *Server) Disconnect(h model.Handle) bool {
	s.mu.RLock()
	sess := s.sessions[h]
	s.mu.RUnlock()

	if sess == nil {
		return false
	}
	sess.close()
	return true
}

// Len returns the number of live sessions.
func (s *Server) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown stops accepting sessions, closes the live ones and waits for
// their OnClose callbacks. http.Server.Shutdown does not track hijacked
// connections, so this must be called alongside it.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	s.logger.Info("closing websocket sessions", "count", len(sessions))
	for _, sess := range sessions {
		sess.close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("websocket shutdown timed out")
		return ctx.Err()
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == origin || allowed == u.Host {
			return true
		}
	}
	return false
}
