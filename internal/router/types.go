package router

import (
	"context"
	"time"

	"github.com/rickgao/comandas/internal/model"
)

// Sender delivers a raw payload to one connection.
type Sender interface {
	Send(ctx context.Context, h model.Handle, payload []byte) error
}

// Config holds configuration for the Message Router.
type Config struct {
	SendTimeout       time.Duration // Bound on each per-recipient send. Default: 2s
	FanoutConcurrency int           // Max concurrent sends per notification. Default: 32
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		SendTimeout:       2 * time.Second,
		FanoutConcurrency: 32,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	MessagesReceived  int64 `json:"messages_received"`
	Registrations     int64 `json:"registrations"`
	Notifications     int64 `json:"notifications"`
	Malformed         int64 `json:"malformed"`
	Unrouted          int64 `json:"unrouted"` // notification type not enrolled, or nobody to deliver to
	UnknownConnection int64 `json:"unknown_connection"`
	Deliveries        int64 `json:"deliveries"`
	SendFailures      int64 `json:"send_failures"`
	Evictions         int64 `json:"evictions"`
}
