package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the netsdr client
type Metrics struct {
	// Data channel metrics
	PacketsReceived prometheus.Counter
	DecodeFailures  prometheus.Counter
	SequenceGaps    prometheus.Counter
	SamplesDecoded  prometheus.Counter

	// Control channel metrics
	ControlRequestDuration prometheus.Histogram

	// Monitoring server metrics
	StreamClients prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics. Call it
// once per process; the collectors register globally.
func NewMetrics() *Metrics {
	return &Metrics{
		PacketsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "netsdr_data_packets_received_total",
			Help: "Total number of data-channel datagrams received",
		}),
		DecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "netsdr_data_decode_failures_total",
			Help: "Total number of datagrams dropped as malformed",
		}),
		SequenceGaps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "netsdr_data_sequence_gaps_total",
			Help: "Total number of detected gaps in data sequence numbers",
		}),
		SamplesDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "netsdr_samples_decoded_total",
			Help: "Total number of sample values forwarded to the sink",
		}),
		ControlRequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "netsdr_control_request_duration_seconds",
			Help:    "Round-trip time of control channel requests",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "netsdr_stream_clients",
			Help: "Current number of connected websocket stream clients",
		}),
	}
}

// RecordPacketReceived increments the datagrams received counter
func (m *Metrics) RecordPacketReceived() {
	m.PacketsReceived.Inc()
}

// RecordDecodeFailure increments the malformed datagram counter
func (m *Metrics) RecordDecodeFailure() {
	m.DecodeFailures.Inc()
}

// RecordSequenceGap increments the sequence gap counter
func (m *Metrics) RecordSequenceGap() {
	m.SequenceGaps.Inc()
}

// RecordSamples adds to the forwarded sample counter
func (m *Metrics) RecordSamples(count int) {
	m.SamplesDecoded.Add(float64(count))
}

// ObserveControlRequest records one control round-trip duration
func (m *Metrics) ObserveControlRequest(seconds float64) {
	m.ControlRequestDuration.Observe(seconds)
}

// SetStreamClients sets the websocket stream client gauge
func (m *Metrics) SetStreamClients(count int) {
	m.StreamClients.Set(float64(count))
}
