package observability

import (
	"strconv"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by the event bus.
type Metrics struct {
	events   *prometheus.CounterVec
	removals *prometheus.CounterVec
	updates  prometheus.Counter
	nodes    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_events_total",
				Help: "Total number of events published, by channel",
			},
			[]string{"channel"},
		),
		removals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_element_removals_total",
				Help: "Total number of element removals",
			},
			[]string{"trashed"},
		),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_element_updates_total",
			Help: "Total number of element updates",
		}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_tree_nodes",
			Help: "Number of nodes in the tree after the last change, root included",
		}),
	}
	for _, c := range []prometheus.Collector{m.events, m.removals, m.updates, m.nodes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Attach subscribes the collectors to every channel of bus.
func (m *Metrics) Attach(bus *events.Bus) {
	for _, ch := range domain.Channels {
		_, _ = bus.Subscribe(ch, m.observe)
	}
}

func (m *Metrics) observe(e domain.Event) {
	m.events.WithLabelValues(string(e.Channel)).Inc()
	switch e.Channel {
	case domain.ChannelChange:
		if e.Tree != nil {
			m.nodes.Set(float64(e.Tree.Count()))
		}
	case domain.ChannelElementUpdate:
		m.updates.Inc()
	case domain.ChannelElementRemove:
		if e.Removal != nil {
			m.removals.WithLabelValues(strconv.FormatBool(e.Removal.Trashed)).Inc()
		}
	}
}
