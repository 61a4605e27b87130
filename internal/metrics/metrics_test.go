package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/comandas/internal/model"
)

type fakeCounter map[model.Role]int

func (f fakeCounter) Count(role model.Role) int { return f[role] }

func TestRouterMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRouterMetrics(reg)

	require.NoError(t, m.Register())
	require.NoError(t, m.Register(), "second Register should be a no-op")
}

func TestRouterMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRouterMetrics(reg)
	require.NoError(t, m.Register())

	m.MessageReceived("notification")
	m.MessageReceived("notification")
	m.MessageReceived("registration")
	m.MessageDropped(DropMalformed)
	m.FanoutCompleted("nuevoPedido", 3, 2)
	m.SendFailed("closed")
	m.ConnectionEvicted()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messagesTotal.WithLabelValues("notification")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesTotal.WithLabelValues("registration")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.droppedTotal.WithLabelValues(DropMalformed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveriesTotal.WithLabelValues("nuevoPedido")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sendFailuresTotal.WithLabelValues("closed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictionsTotal))
}

func TestRouterMetrics_ConnectionGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRouterMetrics(reg)
	require.NoError(t, m.RegisterConnectionGauges(fakeCounter{
		model.RoleKitchen: 2,
		model.RoleWaiter:  5,
	}))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "comandas_registry_connections", families[0].GetName())

	values := map[string]float64{}
	for _, metric := range families[0].GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "role" {
				values[label.GetValue()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["cocina"])
	assert.Equal(t, 5.0, values["camarero"])
	assert.Equal(t, 0.0, values["barra"])
	assert.Contains(t, values, "desconocido")
}

func TestRouterMetrics_NilSafe(t *testing.T) {
	var m *RouterMetrics

	assert.NotPanics(t, func() {
		m.MessageReceived("notification")
		m.MessageDropped(DropUnrouted)
		m.FanoutCompleted("x", 1, 1)
		m.SendFailed("closed")
		m.ConnectionEvicted()
		_ = m.Register()
		_ = m.RegisterConnectionGauges(fakeCounter{})
	})
}
