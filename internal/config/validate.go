package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rickgao/comandas/internal/model"
)

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout < 0 {
		return errors.New("server.shutdown_timeout must be >= 0")
	}

	if !strings.HasPrefix(c.WebSocket.Path, "/") {
		return fmt.Errorf("websocket.path must start with /, got %q", c.WebSocket.Path)
	}
	if c.WebSocket.ReadLimit < 1 {
		return errors.New("websocket.read_limit must be >= 1")
	}
	if c.WebSocket.OutboxSize < 1 {
		return errors.New("websocket.outbox_size must be >= 1")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return errors.New("websocket.write_timeout must be > 0")
	}
	if c.WebSocket.PingInterval <= 0 {
		return errors.New("websocket.ping_interval must be > 0")
	}
	if c.WebSocket.PongTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("websocket.pong_timeout (%s) must exceed ping_interval (%s)",
			c.WebSocket.PongTimeout, c.WebSocket.PingInterval)
	}

	if c.Router.SendTimeout <= 0 {
		return errors.New("router.send_timeout must be > 0")
	}
	if c.Router.FanoutConcurrency < 1 {
		return errors.New("router.fanout_concurrency must be >= 1")
	}

	if err := c.Routing.validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.MetricsEnabled() && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	if c.Metrics.MetricsEnabled() && c.Metrics.Path == c.WebSocket.Path {
		return errors.New("metrics.path and websocket.path must differ")
	}
	return nil
}

func (r *RoutingConfig) validate() error {
	for typ, roles := range r.Routes {
		if typ == "" {
			return errors.New("routing.routes has an empty notification type")
		}
		for _, name := range roles {
			if _, ok := model.ParseRole(name); !ok {
				return fmt.Errorf("routing.routes.%s: unknown role %q", typ, name)
			}
		}
	}
	return nil
}
