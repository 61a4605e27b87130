package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/comandas/internal/model"
	"github.com/rickgao/comandas/internal/routing"
)

func TestLoad(t *testing.T) {
	yaml := `
server:
  host: 127.0.0.1
  port: 9000
websocket:
  path: /comandas
  outbox_size: 64
  ping_interval: 10s
  pong_timeout: 25s
  check_origin:
    - bar.example.com
router:
  send_timeout: 500ms
routing:
  routes:
    nuevoPedido: [cocina]
logging:
  level: debug
  format: json
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.WebSocket.Path != "/comandas" {
		t.Errorf("WebSocket.Path = %q, want %q", cfg.WebSocket.Path, "/comandas")
	}
	if cfg.WebSocket.PingInterval != 10*time.Second {
		t.Errorf("WebSocket.PingInterval = %v, want 10s", cfg.WebSocket.PingInterval)
	}
	if len(cfg.WebSocket.CheckOrigin) != 1 || cfg.WebSocket.CheckOrigin[0] != "bar.example.com" {
		t.Errorf("WebSocket.CheckOrigin = %v", cfg.WebSocket.CheckOrigin)
	}
	if cfg.Router.SendTimeout != 500*time.Millisecond {
		t.Errorf("Router.SendTimeout = %v, want 500ms", cfg.Router.SendTimeout)
	}
	if got := cfg.Routing.Routes["nuevoPedido"]; len(got) != 1 || got[0] != "cocina" {
		t.Errorf("Routing.Routes[nuevoPedido] = %v", got)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Errorf("Load(missing) error = %v, want read config file error", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTempFile(t, "server: [unclosed")

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parse config yaml") {
		t.Errorf("Load(invalid) error = %v, want parse config yaml error", err)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_RELAY_ORIGIN", "comandas.local")
	t.Setenv(PortEnv, "9443")

	yaml := `
server:
  port: ${WEBSOCKET_PORT}
websocket:
  check_origin: ["${TEST_RELAY_ORIGIN}"]
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9443 {
		t.Errorf("Server.Port = %d, want 9443", cfg.Server.Port)
	}
	if cfg.WebSocket.CheckOrigin[0] != "comandas.local" {
		t.Errorf("WebSocket.CheckOrigin[0] = %q, want %q", cfg.WebSocket.CheckOrigin[0], "comandas.local")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	t.Setenv(PortEnv, "")
	path := writeTempFile(t, "logging:\n  level: warn\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.WebSocket.Path != DefaultWSPath {
		t.Errorf("WebSocket.Path = %q, want default %q", cfg.WebSocket.Path, DefaultWSPath)
	}
	if cfg.WebSocket.OutboxSize != DefaultOutboxSize {
		t.Errorf("WebSocket.OutboxSize = %d, want default %d", cfg.WebSocket.OutboxSize, DefaultOutboxSize)
	}
	if cfg.Router.FanoutConcurrency != DefaultFanoutConcurrency {
		t.Errorf("Router.FanoutConcurrency = %d, want default %d", cfg.Router.FanoutConcurrency, DefaultFanoutConcurrency)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn (explicit value kept)", cfg.Logging.Level)
	}
	if cfg.Logging.Format != DefaultLogFormat {
		t.Errorf("Logging.Format = %q, want default %q", cfg.Logging.Format, DefaultLogFormat)
	}
	if !cfg.Metrics.MetricsEnabled() {
		t.Error("metrics disabled by default, want enabled")
	}
}

func TestDefaultPortFromEnv(t *testing.T) {
	tests := []struct {
		env  string
		want int
	}{
		{"", DefaultPort},
		{"8181", 8181},
		{"not-a-port", DefaultPort},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(PortEnv, tt.env)
			cfg := &RelayConfig{}
			cfg.ApplyDefaults()
			if cfg.Server.Port != tt.want {
				t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, tt.want)
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	t.Setenv(PortEnv, "")

	t.Run("empty path uses defaults", func(t *testing.T) {
		cfg, err := LoadAndValidate("")
		if err != nil {
			t.Fatalf("LoadAndValidate failed: %v", err)
		}
		if cfg.Addr() != "0.0.0.0:8080" {
			t.Errorf("Addr() = %q, want 0.0.0.0:8080", cfg.Addr())
		}
	})

	t.Run("invalid role", func(t *testing.T) {
		path := writeTempFile(t, "routing:\n  routes:\n    nuevoPedido: [repartidor]\n")
		_, err := LoadAndValidate(path)
		if err == nil || !strings.Contains(err.Error(), `unknown role "repartidor"`) {
			t.Errorf("LoadAndValidate error = %v, want unknown role", err)
		}
	})
}

func TestValidate(t *testing.T) {
	disabled := false

	tests := []struct {
		name    string
		mutate  func(c *RelayConfig)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *RelayConfig) {},
			wantErr: "",
		},
		{
			name:    "port out of range",
			mutate:  func(c *RelayConfig) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "relative websocket path",
			mutate:  func(c *RelayConfig) { c.WebSocket.Path = "ws" },
			wantErr: `websocket.path must start with /, got "ws"`,
		},
		{
			name:    "negative outbox",
			mutate:  func(c *RelayConfig) { c.WebSocket.OutboxSize = -1 },
			wantErr: "websocket.outbox_size must be >= 1",
		},
		{
			name: "pong shorter than ping",
			mutate: func(c *RelayConfig) {
				c.WebSocket.PingInterval = 30 * time.Second
				c.WebSocket.PongTimeout = 10 * time.Second
			},
			wantErr: "websocket.pong_timeout (10s) must exceed ping_interval (30s)",
		},
		{
			name:    "zero fanout concurrency",
			mutate:  func(c *RelayConfig) { c.Router.FanoutConcurrency = -2 },
			wantErr: "router.fanout_concurrency must be >= 1",
		},
		{
			name: "unknown role in route",
			mutate: func(c *RelayConfig) {
				c.Routing.Routes = map[string][]string{"pedidoListo": {"camarero", "chef"}}
			},
			wantErr: `routing.routes.pedidoListo: unknown role "chef"`,
		},
		{
			name: "unknown role literal rejected",
			mutate: func(c *RelayConfig) {
				c.Routing.Routes = map[string][]string{"pedidoListo": {"desconocido"}}
			},
			wantErr: `routing.routes.pedidoListo: unknown role "desconocido"`,
		},
		{
			name:    "bad log level",
			mutate:  func(c *RelayConfig) { c.Logging.Level = "verbose" },
			wantErr: `logging.level must be one of debug, info, warn, error, got "verbose"`,
		},
		{
			name:    "bad log format",
			mutate:  func(c *RelayConfig) { c.Logging.Format = "xml" },
			wantErr: `logging.format must be text or json, got "xml"`,
		},
		{
			name:    "metrics path collides with websocket",
			mutate:  func(c *RelayConfig) { c.Metrics.Path = "/ws" },
			wantErr: "metrics.path and websocket.path must differ",
		},
		{
			name: "disabled metrics skip path checks",
			mutate: func(c *RelayConfig) {
				c.Metrics.Enabled = &disabled
				c.Metrics.Path = "metrics"
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(PortEnv, "")
			cfg := &RelayConfig{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestConnectionConfig(t *testing.T) {
	cfg := &RelayConfig{WebSocket: WebSocketConfig{OutboxSize: 4, CheckOrigin: []string{"a.local"}}}
	cfg.ApplyDefaults()

	sc := cfg.ConnectionConfig()
	if sc.OutboxMaxSize != 4 {
		t.Errorf("OutboxMaxSize = %d, want 4", sc.OutboxMaxSize)
	}
	if sc.OutboxInitialSize > sc.OutboxMaxSize {
		t.Errorf("OutboxInitialSize %d exceeds max %d", sc.OutboxInitialSize, sc.OutboxMaxSize)
	}
	if sc.ReadLimit != DefaultReadLimit {
		t.Errorf("ReadLimit = %d, want %d", sc.ReadLimit, DefaultReadLimit)
	}
	if len(sc.AllowedOrigins) != 1 || sc.AllowedOrigins[0] != "a.local" {
		t.Errorf("AllowedOrigins = %v", sc.AllowedOrigins)
	}

	rc := cfg.RouterConfig()
	if rc.SendTimeout != DefaultSendTimeout || rc.FanoutConcurrency != DefaultFanoutConcurrency {
		t.Errorf("RouterConfig() = %+v", rc)
	}
}

func TestRoutingTable(t *testing.T) {
	t.Run("default when unset", func(t *testing.T) {
		cfg := &RelayConfig{}
		table, err := cfg.RoutingTable()
		if err != nil {
			t.Fatalf("RoutingTable failed: %v", err)
		}
		if table.Len() != routing.Default().Len() {
			t.Errorf("Len() = %d, want %d", table.Len(), routing.Default().Len())
		}
	})

	t.Run("configured routes", func(t *testing.T) {
		cfg := &RelayConfig{Routing: RoutingConfig{Routes: map[string][]string{
			"bebidaLista": {"camarero", "barra"},
		}}}
		table, err := cfg.RoutingTable()
		if err != nil {
			t.Fatalf("RoutingTable failed: %v", err)
		}
		got := table.Lookup("bebidaLista")
		if len(got) != 2 || got[0] != model.RoleWaiter || got[1] != model.RoleBar {
			t.Errorf("Lookup(bebidaLista) = %v", got)
		}
		if got := table.Lookup(routing.TypeNewOrder); got != nil {
			t.Errorf("Lookup(nuevoPedido) = %v, want nil (replaced table)", got)
		}
	})
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
