// Package metrics exposes prometheus counters for the messaging layer
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type impl struct {
	bytesSent    prometheus.Counter
	bytesRecv    prometheus.Counter
	published    prometheus.Counter
	received     prometheus.Counter
	dropped      prometheus.Counter
	decodeErrors prometheus.Counter
	clients      prometheus.Gauge
}

var _ IFace = (*impl)(nil)
var _ Bytes = (*impl)(nil)
var _ Messages = (*impl)(nil)
var _ Clients = (*impl)(nil)

// New allocates counters and registers them with the given registerer.
// Pass nil to keep the counters unregistered, e.g. in tests
func New(reg prometheus.Registerer) IFace {
	m := &impl{
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirebus",
			Name:      "bytes_sent_total",
			Help:      "Bytes written to the transport",
		}),
		bytesRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirebus",
			Name:      "bytes_received_total",
			Help:      "Bytes read from the transport",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirebus",
			Name:      "messages_published_total",
			Help:      "Wire messages handed to the transport",
		}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirebus",
			Name:      "messages_received_total",
			Help:      "Wire messages read from the transport",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirebus",
			Name:      "messages_dropped_total",
			Help:      "Inbound messages matching no active subscription",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirebus",
			Name:      "decode_errors_total",
			Help:      "Inbound messages dropped due to decode failure",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wirebus",
			Name:      "subscriber_connections",
			Help:      "Currently connected subscribers",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.bytesSent,
			m.bytesRecv,
			m.published,
			m.received,
			m.dropped,
			m.decodeErrors,
			m.clients,
		)
	}

	return m
}

func (m *impl) Bytes() Bytes       { return m }
func (m *impl) Messages() Messages { return m }
func (m *impl) Clients() Clients   { return m }

func (m *impl) OnSent(n int) { m.bytesSent.Add(float64(n)) }
func (m *impl) OnRecv(n int) { m.bytesRecv.Add(float64(n)) }

func (m *impl) OnPublished()   { m.published.Inc() }
func (m *impl) OnReceived()    { m.received.Inc() }
func (m *impl) OnDropped()     { m.dropped.Inc() }
func (m *impl) OnDecodeError() { m.decodeErrors.Inc() }

func (m *impl) OnConnect()    { m.clients.Inc() }
func (m *impl) OnDisconnect() { m.clients.Dec() }
