package config

import "time"

// RelayConfig is the root configuration for a relay instance.
type RelayConfig struct {
	Server    ServerConfig    `yaml:"server"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Router    RouterConfig    `yaml:"router"`
	Routing   RoutingConfig   `yaml:"routing"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

// WebSocketConfig holds per-connection transport settings.
type WebSocketConfig struct {
	Path         string        `yaml:"path"`
	ReadLimit    int64         `yaml:"read_limit"`  // max inbound frame size in bytes
	OutboxSize   int           `yaml:"outbox_size"` // max queued outbound frames per connection
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
	PongTimeout  time.Duration `yaml:"pong_timeout"`
	CheckOrigin  []string      `yaml:"check_origin"` // empty allows any origin
}

// RouterConfig holds fan-out settings.
type RouterConfig struct {
	SendTimeout       time.Duration `yaml:"send_timeout"`
	FanoutConcurrency int           `yaml:"fanout_concurrency"`
}

// RoutingConfig maps a notification type to the role names that receive it.
// An empty map selects the built-in table.
type RoutingConfig struct {
	Routes map[string][]string `yaml:"routes"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsEnabled reports whether the /metrics endpoint is served.
func (m MetricsConfig) MetricsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}
