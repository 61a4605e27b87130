package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/comandas/internal/model"
)

const namespace = "comandas"

// Drop reasons.
const (
	DropMalformed         = "malformed"
	DropUnrouted          = "unrouted"
	DropNoRecipients      = "no_recipients"
	DropUnknownConnection = "unknown_connection"
)

// RoleCounter reports how many connections hold a role.
type RoleCounter interface {
	Count(role model.Role) int
}

// RouterMetrics holds the router's Prometheus collectors. A nil
// *RouterMetrics is valid and records nothing.
type RouterMetrics struct {
	mu sync.Mutex

	messagesTotal     *prometheus.CounterVec
	droppedTotal      *prometheus.CounterVec
	deliveriesTotal   *prometheus.CounterVec
	sendFailuresTotal *prometheus.CounterVec
	evictionsTotal    prometheus.Counter
	fanoutRecipients  prometheus.Histogram

	registerer prometheus.Registerer
	registered bool
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewRouterMetrics creates the router collectors. They are not registered
// until Register is called.
func NewRouterMetrics(registerer prometheus.Registerer) *RouterMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &RouterMetrics{
		registerer:        registerer,
		messagesTotal:     newCounterVec("messages_total", "Inbound messages by classification", []string{"kind"}),
		droppedTotal:      newCounterVec("dropped_total", "Inbound messages dropped without forwarding", []string{"reason"}),
		deliveriesTotal:   newCounterVec("deliveries_total", "Notifications handed to the transport, per recipient", []string{"type"}),
		sendFailuresTotal: newCounterVec("send_failures_total", "Per-recipient send failures during fan-out", []string{"reason"}),
		evictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "evictions_total",
			Help:      "Connections removed after a send found them closed",
		}),
		fanoutRecipients: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "fanout_recipients",
			Help:      "Recipients per forwarded notification",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *RouterMetrics) Register() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.messagesTotal,
		m.droppedTotal,
		m.deliveriesTotal,
		m.sendFailuresTotal,
		m.evictionsTotal,
		m.fanoutRecipients,
	}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			return err
		}
	}
	m.registered = true
	return nil
}

// RegisterConnectionGauges exposes the number of open connections per role,
// read from counter at scrape time.
func (m *RouterMetrics) RegisterConnectionGauges(counter RoleCounter) error {
	if m == nil {
		return nil
	}

	roles := append([]model.Role{model.RoleUnknown}, model.Roles...)
	for _, role := range roles {
		role := role
		g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "registry",
			Name:        "connections",
			Help:        "Open connections per role",
			ConstLabels: prometheus.Labels{"role": role.String()},
		}, func() float64 {
			return float64(counter.Count(role))
		})
		if err := m.registerer.Register(g); err != nil {
			return err
		}
	}
	return nil
}

// MessageReceived counts one inbound message of the given kind.
func (m *RouterMetrics) MessageReceived(kind string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(kind).Inc()
}

// MessageDropped counts one message dropped for reason.
func (m *RouterMetrics) MessageDropped(reason string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(reason).Inc()
}

// FanoutCompleted records a fan-out of typ that reached delivered of
// recipients connections.
func (m *RouterMetrics) FanoutCompleted(typ string, recipients, delivered int) {
	if m == nil {
		return
	}
	m.fanoutRecipients.Observe(float64(recipients))
	m.deliveriesTotal.WithLabelValues(typ).Add(float64(delivered))
}

// SendFailed counts one failed per-recipient send.
func (m *RouterMetrics) SendFailed(reason string) {
	if m == nil {
		return
	}
	m.sendFailuresTotal.WithLabelValues(reason).Inc()
}

// ConnectionEvicted counts one connection removed after a failed send.
func (m *RouterMetrics) ConnectionEvicted() {
	if m == nil {
		return
	}
	m.evictionsTotal.Inc()
}
