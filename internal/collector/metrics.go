package collector

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HerbHall/switchmap/internal/snmp"
)

const namespace = "switchmap"

// Metrics holds run counters on a private registry so a one-shot process
// can export them in the node-exporter textfile format.
type Metrics struct {
	registry *prometheus.Registry

	devices        *prometheus.CounterVec
	walks          *prometheus.CounterVec
	records        *prometheus.CounterVec
	observations   prometheus.Counter
	parseSkipped   prometheus.Counter
	deviceDuration prometheus.Histogram
	lastRun        prometheus.Gauge
}

// NewMetrics creates and registers the collector metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		devices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_total",
			Help:      "Devices polled, by outcome.",
		}, []string{"status"}),
		walks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snmp_walks_total",
			Help:      "SNMP walks issued, by result.",
		}, []string{"result"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_records_total",
			Help:      "Inventory records written, by result.",
		}, []string{"result"}),
		observations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_total",
			Help:      "MAC observations built from forwarding tables.",
		}),
		parseSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_skipped_lines_total",
			Help:      "Walk lines that did not produce a usable binding.",
		}),
		deviceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "device_duration_seconds",
			Help:      "Time spent polling one device.",
			Buckets:   prometheus.DefBuckets,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	m.registry.MustRegister(
		m.devices,
		m.walks,
		m.records,
		m.observations,
		m.parseSkipped,
		m.deviceDuration,
		m.lastRun,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func (m *Metrics) observeWalk(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = snmp.KindOf(err).String()
	}
	m.walks.WithLabelValues(result).Inc()
}

// ObserveDevice records the outcome of one device. A nil Metrics is a no-op.
func (m *Metrics) ObserveDevice(r DeviceReport) {
	if m == nil {
		return
	}
	m.devices.WithLabelValues(string(r.Status)).Inc()
	m.records.WithLabelValues("inserted").Add(float64(r.Inserted))
	m.records.WithLabelValues("updated").Add(float64(r.Updated))
	m.records.WithLabelValues("failed").Add(float64(r.Failed))
	m.observations.Add(float64(r.Observed))
	m.parseSkipped.Add(float64(r.ParseSkipped))
	m.deviceDuration.Observe(r.Duration.Seconds())
}

// ObserveRun records the completion time of a run.
func (m *Metrics) ObserveRun(s *Summary) {
	if m == nil {
		return
	}
	m.lastRun.Set(float64(s.Finished.Unix()))
}
