package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/comandas/internal/jsoncodec"
	"github.com/rickgao/comandas/internal/model"
	"github.com/rickgao/comandas/internal/registry"
	"github.com/rickgao/comandas/internal/router"
	"github.com/rickgao/comandas/internal/routing"
	"github.com/rickgao/comandas/internal/version"
)

// Deps are the components the handler reports on and dispatches to.
type Deps struct {
	Registry  *registry.Registry
	Router    *router.Router
	Table     *routing.Table
	WebSocket http.Handler
	Gatherer  prometheus.Gatherer // nil disables /metrics
}

// Config holds the mount points.
type Config struct {
	WebSocketPath string
	MetricsPath   string
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		WebSocketPath: "/ws",
		MetricsPath:   "/metrics",
	}
}

type handler struct {
	deps    Deps
	logger  *slog.Logger
	started time.Time
}

// NewHandler builds the HTTP router.
func NewHandler(cfg Config, deps Deps, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WebSocketPath == "" {
		cfg.WebSocketPath = DefaultConfig().WebSocketPath
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = DefaultConfig().MetricsPath
	}

	h := &handler{deps: deps, logger: logger, started: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Route("/debug", func(r chi.Router) {
		r.Get("/connections", h.connections)
		r.Get("/routes", h.routes)
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, cfg.MetricsPath, promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if deps.WebSocket != nil {
		r.Handle(cfg.WebSocketPath, deps.WebSocket)
	}
	return r
}

type healthResponse struct {
	Status        string         `json:"status"`
	Version       version.Info   `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Connections   int            `json:"connections"`
	Roles         map[string]int `json:"roles"`
	Router        *router.Stats  `json:"router,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "healthy",
		Version:       version.Get(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Roles:         make(map[string]int, len(model.Roles)+1),
	}
	if reg := h.deps.Registry; reg != nil {
		resp.Connections = reg.Len()
		resp.Roles[model.RoleUnknown.String()] = reg.Count(model.RoleUnknown)
		for _, role := range model.Roles {
			resp.Roles[role.String()] = reg.Count(role)
		}
	}
	if h.deps.Router != nil {
		stats := h.deps.Router.Stats()
		resp.Router = &stats
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) connections(w http.ResponseWriter, r *http.Request) {
	conns := []model.Connection{}
	if h.deps.Registry != nil {
		conns = h.deps.Registry.Snapshot()
	}
	h.writeJSON(w, http.StatusOK, conns)
}

type routeEntry struct {
	Type  string       `json:"type"`
	Roles []model.Role `json:"roles"`
}

func (h *handler) routes(w http.ResponseWriter, r *http.Request) {
	entries := []routeEntry{}
	if t := h.deps.Table; t != nil {
		for _, typ := range t.Types() {
			entries = append(entries, routeEntry{Type: typ, Roles: t.Lookup(typ)})
		}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsoncodec.Encode(w, v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}
