package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/comandas/internal/model"
)

// session is one upgraded WebSocket connection.
type session struct {
	handle model.Handle
	cfg    ServerConfig
	logger *slog.Logger

	conn   *websocket.Conn
	outbox *Outbox[[]byte]

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(parent context.Context, h model.Handle, conn *websocket.Conn, cfg ServerConfig, logger *slog.Logger) *session {
	ctx, cancel := context.WithCancel(parent)
	return &session{
		handle: h,
		cfg:    cfg,
		logger: logger.With("handle", h.String()),
		conn:   conn,
		outbox: NewOutbox[[]byte](cfg.OutboxInitialSize, cfg.OutboxMaxSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// enqueue queues a text frame for the writer goroutine. It never blocks.
func (s *session) enqueue(data []byte) error {
	return s.outbox.Push(data)
}

// close tears the session down. Safe to call from any goroutine, any number
// of times; closing the socket unblocks readLoop.
func (s *session) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.outbox.Close()
		close(s.done)

		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
	})
}

// readLoop delivers inbound text frames to onMessage until the socket fails
// or the session is closed. Frames are delivered in arrival order.
func (s *session) readLoop(onMessage func(ctx context.Context, data []byte)) {
	s.conn.SetReadLimit(s.cfg.ReadLimit)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// Closed locally, the error is expected.
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Warn("websocket read failed", "error", err)
				} else {
					s.logger.Debug("websocket closed by peer", "error", err)
				}
			}
			return
		}

		s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))

		if msgType != websocket.TextMessage {
			s.logger.Debug("ignoring non-text frame", "frame_type", msgType)
			continue
		}
		if len(data) == 0 {
			continue
		}
		onMessage(s.ctx, data)
	}
}

// writeLoop drains the outbox onto the socket. A write failure closes the
// session.
func (s *session) writeLoop() {
	defer s.close()

	for {
		data, ok := s.outbox.Pop()
		if !ok {
			return
		}

		s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}

// heartbeatLoop pings the client so readLoop's deadline keeps moving while
// the client is alive.
func (s *session) heartbeatLoop() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				s.logger.Debug("failed to send ping", "error", err)
				s.close()
				return
			}
		}
	}
}
