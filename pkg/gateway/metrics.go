package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"imoperator/pkg/bus"
)

const metricsNamespace = "imoperator"

// channelCounts is the per-channel tally reported by the status endpoints.
type channelCounts struct {
	Accepted uint64 `json:"accepted"`
	Rejected uint64 `json:"rejected"`
	Replied  uint64 `json:"replied"`
	Echoed   uint64 `json:"echoed"`
	Failed   uint64 `json:"failed"`
}

// metrics turns bus events into Prometheus series and status counters.
type metrics struct {
	registry *prometheus.Registry
	packets  *prometheus.CounterVec
	replies  *prometheus.CounterVec
	failures *prometheus.CounterVec

	mu     sync.Mutex
	counts map[string]channelCounts
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &metrics{
		registry: registry,
		packets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "packets_total",
			Help:      "Inbound packets by channel and filter decision.",
		}, []string{"channel", "decision"}),
		replies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "replies_total",
			Help:      "Replies sent by channel and kind (command or echo).",
		}, []string{"channel", "kind", "command"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "failures_total",
			Help:      "Messages that could not be answered, by channel and stage.",
		}, []string{"channel", "stage"}),
		counts: make(map[string]channelCounts),
	}
}

// observe records one bus event.
func (m *metrics) observe(event bus.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := m.counts[event.Channel]
	switch event.Type {
	case bus.EventPacketAccepted:
		counts.Accepted++
		m.packets.WithLabelValues(event.Channel, "accepted").Inc()
	case bus.EventPacketRejected:
		counts.Rejected++
		m.packets.WithLabelValues(event.Channel, "rejected").Inc()
	case bus.EventCommandReplied:
		counts.Replied++
		m.replies.WithLabelValues(event.Channel, "command", event.Payload[bus.PayloadCommand]).Inc()
	case bus.EventMessageEchoed:
		counts.Echoed++
		m.replies.WithLabelValues(event.Channel, "echo", "").Inc()
	case bus.EventMessageFailed:
		counts.Failed++
		m.failures.WithLabelValues(event.Channel, event.Payload[bus.PayloadStage]).Inc()
	default:
		return
	}
	m.counts[event.Channel] = counts
}

// consume observes events until the stream closes or ctx ends.
func (m *metrics) consume(ctx context.Context, events <-chan bus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.observe(event)
		}
	}
}

func (m *metrics) snapshot(channel string) channelCounts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[channel]
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
