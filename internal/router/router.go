package router

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/comandas/internal/classifier"
	"github.com/rickgao/comandas/internal/connection"
	"github.com/rickgao/comandas/internal/ids"
	"github.com/rickgao/comandas/internal/metrics"
	"github.com/rickgao/comandas/internal/model"
	"github.com/rickgao/comandas/internal/registry"
	"github.com/rickgao/comandas/internal/routing"
)

const tracerName = "github.com/rickgao/comandas/internal/router"

// Router classifies inbound payloads and relays notifications to the roles
// enrolled for them. It implements connection.EventHandler.
type Router struct {
	cfg    Config
	logger *slog.Logger

	registry *registry.Registry
	table    *routing.Table
	sender   Sender

	metrics *metrics.RouterMetrics
	tracer  trace.Tracer

	received          atomic.Int64
	registrations     atomic.Int64
	notifications     atomic.Int64
	malformed         atomic.Int64
	unrouted          atomic.Int64
	unknownConnection atomic.Int64
	deliveries        atomic.Int64
	sendFailures      atomic.Int64
	evictions         atomic.Int64
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus collectors the router records to.
func WithMetrics(m *metrics.RouterMetrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithTracerProvider sets the tracer provider used for fan-out spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Router) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates a new Message Router.
func New(cfg Config, reg *registry.Registry, table *routing.Table, sender Sender, opts ...Option) *Router {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultConfig().SendTimeout
	}
	if cfg.FanoutConcurrency < 1 {
		cfg.FanoutConcurrency = DefaultConfig().FanoutConcurrency
	}

	r := &Router{
		cfg:      cfg,
		logger:   slog.Default(),
		registry: reg,
		table:    table,
		sender:   sender,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnOpen records a new connection with role unknown.
func (r *Router) OnOpen(h model.Handle) {
	if err := r.registry.Register(h); err != nil {
		// Duplicate open signals leave the existing record as is.
		r.logger.Warn("ignoring open for known connection", "handle", h.String(), "error", err)
		return
	}
	r.logger.Debug("connection opened", "handle", h.String())
}

// OnClose forgets the connection. Unknown handles are ignored.
func (r *Router) OnClose(h model.Handle) {
	c, ok := r.registry.Remove(h)
	if !ok {
		return
	}
	r.logger.Info("connection removed", "handle", h.String(), "role", c.Role.String())
}

// OnMessage handles one inbound payload from h.
func (r *Router) OnMessage(ctx context.Context, h model.Handle, payload []byte) {
	r.received.Add(1)
	msg := classifier.Classify(payload)
	r.metrics.MessageReceived(msg.Kind.String())

	switch msg.Kind {
	case classifier.KindRegistration:
		r.register(h, msg)
	case classifier.KindNotification:
		r.notify(ctx, h, msg)
	default:
		r.malformed.Add(1)
		r.metrics.MessageDropped(metrics.DropMalformed)
		r.logger.Warn("dropping malformed message",
			"handle", h.String(),
			"error", msg.Err,
			"payload", truncate(payload, 256),
		)
	}
}

// SendToTable delivers payload to every customer connection seated at table.
// It returns the number of successful deliveries.
func (r *Router) SendToTable(ctx context.Context, table int, payload []byte) int {
	recipients := r.registry.ConnectionsForTable(table)
	if len(recipients) == 0 {
		r.logger.Debug("no customer connected at table", "table", table)
		return 0
	}

	delivered := r.fanout(ctx, "mesa", payload, recipients)
	r.logger.Info("message sent to table",
		"table", table,
		"recipients", len(recipients),
		"delivered", delivered,
	)
	return delivered
}

// Stats returns current statistics.
func (r *Router) Stats() Stats {
	return Stats{
		MessagesReceived:  r.received.Load(),
		Registrations:     r.registrations.Load(),
		Notifications:     r.notifications.Load(),
		Malformed:         r.malformed.Load(),
		Unrouted:          r.unrouted.Load(),
		UnknownConnection: r.unknownConnection.Load(),
		Deliveries:        r.deliveries.Load(),
		SendFailures:      r.sendFailures.Load(),
		Evictions:         r.evictions.Load(),
	}
}

// register binds h to the role in msg. Registrations are never forwarded.
func (r *Router) register(h model.Handle, msg classifier.Message) {
	prev, err := r.registry.SetRole(h, msg.Role, msg.TableNumber)
	if err != nil {
		r.unknownConnection.Add(1)
		r.metrics.MessageDropped(metrics.DropUnknownConnection)
		r.logger.Warn("registration from unknown connection", "handle", h.String(), "error", err)
		return
	}
	r.registrations.Add(1)

	attrs := []any{"handle", h.String(), "role", msg.Role.String()}
	if msg.TableNumber != nil {
		attrs = append(attrs, "table", *msg.TableNumber)
	}
	if prev != model.RoleUnknown && prev != msg.Role {
		attrs = append(attrs, "previous_role", prev.String())
	}
	r.logger.Info("client registered", attrs...)
}

// notify relays a notification to its destination roles, skipping the sender.
func (r *Router) notify(ctx context.Context, h model.Handle, msg classifier.Message) {
	r.notifications.Add(1)

	if _, ok := r.registry.Get(h); !ok {
		r.unknownConnection.Add(1)
		r.metrics.MessageDropped(metrics.DropUnknownConnection)
		r.logger.Warn("notification from unknown connection", "handle", h.String(), "type", msg.Type)
		return
	}

	roles := r.table.Lookup(msg.Type)
	if len(roles) == 0 {
		r.unrouted.Add(1)
		r.metrics.MessageDropped(metrics.DropUnrouted)
		r.logger.Debug("notification type has no destination, not forwarding", "type", msg.Type)
		return
	}

	recipients := excludeHandle(r.registry.ConnectionsForRoles(roles...), h)
	if len(recipients) == 0 {
		r.unrouted.Add(1)
		r.metrics.MessageDropped(metrics.DropNoRecipients)
		r.logger.Debug("no recipients connected", "type", msg.Type, "roles", roleNames(roles))
		return
	}

	r.logger.Info("forwarding notification",
		"type", msg.Type,
		"from", h.String(),
		"roles", roleNames(roles),
		"recipients", len(recipients),
	)
	r.fanout(ctx, msg.Type, msg.Raw, recipients)
}

// fanout sends payload to every recipient concurrently. A failed send never
// stops the others. Returns the number of successful sends.
func (r *Router) fanout(ctx context.Context, typ string, payload []byte, recipients []model.Handle) int {
	deliveryID := ids.NewDeliveryID()
	ctx, span := r.tracer.Start(ctx, "router.fanout", trace.WithAttributes(
		attribute.String("notification.type", typ),
		attribute.String("delivery.id", deliveryID),
		attribute.Int("fanout.recipients", len(recipients)),
	))
	defer span.End()

	var (
		g         errgroup.Group
		delivered atomic.Int64
		failed    atomic.Int64
	)
	g.SetLimit(r.cfg.FanoutConcurrency)

	for _, h := range recipients {
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, r.cfg.SendTimeout)
			defer cancel()

			if err := r.sender.Send(sendCtx, h, payload); err != nil {
				failed.Add(1)
				r.handleSendFailure(h, deliveryID, err)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	n := int(delivered.Load())
	r.deliveries.Add(int64(n))
	r.metrics.FanoutCompleted(typ, len(recipients), n)

	span.SetAttributes(attribute.Int("fanout.delivered", n))
	if f := failed.Load(); f > 0 {
		span.SetStatus(codes.Error, "partial delivery")
		r.logger.Warn("fan-out incomplete",
			"delivery_id", deliveryID,
			"type", typ,
			"delivered", n,
			"failed", f,
		)
	}
	return n
}

// handleSendFailure records a failed send and evicts the recipient when the
// transport reports it gone.
func (r *Router) handleSendFailure(h model.Handle, deliveryID string, err error) {
	r.sendFailures.Add(1)

	switch {
	case errors.Is(err, connection.ErrConnectionClosed):
		r.metrics.SendFailed("closed")
		if c, ok := r.registry.Remove(h); ok {
			r.evictions.Add(1)
			r.metrics.ConnectionEvicted()
			r.logger.Info("evicted closed connection",
				"handle", h.String(),
				"role", c.Role.String(),
				"delivery_id", deliveryID,
			)
		}
	case errors.Is(err, connection.ErrOutboxFull):
		r.metrics.SendFailed("outbox_full")
		r.logger.Warn("recipient not keeping up, message dropped",
			"handle", h.String(),
			"delivery_id", deliveryID,
		)
	case errors.Is(err, context.DeadlineExceeded):
		r.metrics.SendFailed("timeout")
		r.logger.Warn("send timed out", "handle", h.String(), "delivery_id", deliveryID)
	default:
		r.metrics.SendFailed("error")
		r.logger.Warn("send failed", "handle", h.String(), "delivery_id", deliveryID, "error", err)
	}
}

func excludeHandle(handles []model.Handle, h model.Handle) []model.Handle {
	out := handles[:0]
	for _, x := range handles {
		if x != h {
			out = append(out, x)
		}
	}
	return out
}

func roleNames(roles []model.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return names
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
