package config

import (
	"os"
	"strconv"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 8080
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second

	DefaultWSPath       = "/ws"
	DefaultReadLimit    = 64 * 1024
	DefaultOutboxSize   = 256
	DefaultWriteTimeout = 5 * time.Second
	DefaultPingInterval = 30 * time.Second
	DefaultPongTimeout  = 60 * time.Second

	DefaultSendTimeout       = 2 * time.Second
	DefaultFanoutConcurrency = 32

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultMetricsPath = "/metrics"
)

// PortEnv names the environment variable consulted when server.port is unset.
const PortEnv = "WEBSOCKET_PORT"

// ApplyDefaults fills every unset field.
func (c *RelayConfig) ApplyDefaults() {
	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = portFromEnv()
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}

	// WebSocket defaults
	if c.WebSocket.Path == "" {
		c.WebSocket.Path = DefaultWSPath
	}
	if c.WebSocket.ReadLimit == 0 {
		c.WebSocket.ReadLimit = DefaultReadLimit
	}
	if c.WebSocket.OutboxSize == 0 {
		c.WebSocket.OutboxSize = DefaultOutboxSize
	}
	if c.WebSocket.WriteTimeout == 0 {
		c.WebSocket.WriteTimeout = DefaultWriteTimeout
	}
	if c.WebSocket.PingInterval == 0 {
		c.WebSocket.PingInterval = DefaultPingInterval
	}
	if c.WebSocket.PongTimeout == 0 {
		c.WebSocket.PongTimeout = DefaultPongTimeout
	}

	// Router defaults
	if c.Router.SendTimeout == 0 {
		c.Router.SendTimeout = DefaultSendTimeout
	}
	if c.Router.FanoutConcurrency == 0 {
		c.Router.FanoutConcurrency = DefaultFanoutConcurrency
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// portFromEnv returns WEBSOCKET_PORT when it holds a number, else DefaultPort.
func portFromEnv() int {
	if v := os.Getenv(PortEnv); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p != 0 {
			return p
		}
	}
	return DefaultPort
}
