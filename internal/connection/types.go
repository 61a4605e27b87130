package connection

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/comandas/internal/model"
)

// Errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrOutboxFull       = errors.New("outbox full")
	ErrServerClosed     = errors.New("server closed")
)

// EventHandler receives session lifecycle and message events. OnClose is
// called exactly once for every handle passed to OnOpen.
type EventHandler interface {
	OnOpen(h model.Handle)
	OnMessage(ctx context.Context, h model.Handle, payload []byte)
	OnClose(h model.Handle)
}

// ServerConfig configures the WebSocket server.
type ServerConfig struct {
	ReadLimit         int64         // Max inbound frame size in bytes
	OutboxInitialSize int           // Initial per-session outbox capacity
	OutboxMaxSize     int           // Frames queued per session before sends fail with ErrOutboxFull
	WriteTimeout      time.Duration // Write deadline per frame
	PingInterval      time.Duration // How often the server pings each client
	PongTimeout       time.Duration // Max silence before a session is considered dead
	HandshakeTimeout  time.Duration
	AllowedOrigins    []string // Empty = accept any origin
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadLimit:         64 * 1024,
		OutboxInitialSize: 16,
		OutboxMaxSize:     256,
		WriteTimeout:      5 * time.Second,
		PingInterval:      30 * time.Second,
		PongTimeout:       60 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// OutboxStats contains outbox statistics.
type OutboxStats struct {
	Count       int
	Capacity    int
	MaxCapacity int
	TotalPushed int64
	TotalPopped int64
	Rejected    int64
	ResizeCount int
}
