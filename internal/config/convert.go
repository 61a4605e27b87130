package config

import (
	"fmt"

	"github.com/rickgao/comandas/internal/connection"
	"github.com/rickgao/comandas/internal/model"
	"github.com/rickgao/comandas/internal/router"
	"github.com/rickgao/comandas/internal/routing"
)

// Addr returns the host:port the HTTP server listens on.
func (c *RelayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ConnectionConfig converts the websocket section for connection.NewServer.
func (c *RelayConfig) ConnectionConfig() connection.ServerConfig {
	cfg := connection.DefaultServerConfig()
	cfg.ReadLimit = c.WebSocket.ReadLimit
	cfg.OutboxMaxSize = c.WebSocket.OutboxSize
	if cfg.OutboxInitialSize > cfg.OutboxMaxSize {
		cfg.OutboxInitialSize = cfg.OutboxMaxSize
	}
	cfg.WriteTimeout = c.WebSocket.WriteTimeout
	cfg.PingInterval = c.WebSocket.PingInterval
	cfg.PongTimeout = c.WebSocket.PongTimeout
	cfg.AllowedOrigins = append([]string(nil), c.WebSocket.CheckOrigin...)
	return cfg
}

// RouterConfig converts the router section for router.New.
func (c *RelayConfig) RouterConfig() router.Config {
	return router.Config{
		SendTimeout:       c.Router.SendTimeout,
		FanoutConcurrency: c.Router.FanoutConcurrency,
	}
}

// RoutingTable builds the routing table, falling back to routing.Default
// when no routes are configured.
func (c *RelayConfig) RoutingTable() (*routing.Table, error) {
	if len(c.Routing.Routes) == 0 {
		return routing.Default(), nil
	}

	routes := make(map[string][]model.Role, len(c.Routing.Routes))
	for typ, names := range c.Routing.Routes {
		roles := make([]model.Role, 0, len(names))
		for _, name := range names {
			role, ok := model.ParseRole(name)
			if !ok {
				return nil, fmt.Errorf("routing.routes.%s: unknown role %q", typ, name)
			}
			roles = append(roles, role)
		}
		routes[typ] = roles
	}

	table, err := routing.New(routes)
	if err != nil {
		return nil, fmt.Errorf("build routing table: %w", err)
	}
	return table, nil
}
