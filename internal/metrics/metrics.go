package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "relaychat"

// Metrics groups the relay's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	connections      prometheus.Gauge
	messagesStored   prometheus.Counter
	storeErrors      *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	botRequests      *prometheus.CounterVec
	malformedInbound prometheus.Counter
	rateLimited      prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Currently registered client connections.",
		}),
		messagesStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_stored_total",
			Help:      "Chat messages persisted to the message log.",
		}),
		storeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed message store operations by operation.",
		}, []string{"op"}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Outbound envelopes pushed to connections by event type and result.",
		}, []string{"event", "result"}),
		botRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_requests_total",
			Help:      "Responder calls by outcome.",
		}, []string{"outcome"}),
		malformedInbound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_inbound_total",
			Help:      "Inbound frames discarded as malformed.",
		}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Inbound frames dropped by the per-connection rate limit.",
		}),
	}
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) MessageStored() {
	if m != nil {
		m.messagesStored.Inc()
	}
}

func (m *Metrics) StoreError(op string) {
	if m != nil {
		m.storeErrors.WithLabelValues(op).Inc()
	}
}

// Delivery records one push attempt; delivered=false means the connection was skipped.
func (m *Metrics) Delivery(event string, delivered bool) {
	if m == nil {
		return
	}
	result := "delivered"
	if !delivered {
		result = "dropped"
	}
	m.deliveries.WithLabelValues(event, result).Inc()
}

func (m *Metrics) BotRequest(outcome string) {
	if m != nil {
		m.botRequests.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) MalformedInbound() {
	if m != nil {
		m.malformedInbound.Inc()
	}
}

func (m *Metrics) RateLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}
