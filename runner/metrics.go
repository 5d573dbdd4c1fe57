package runner

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the per-middleware processing metrics every runner
// reports. All vectors are labeled by middleware name so one registry
// can serve every runner in a process.
type Metrics struct {
	ServiceStatus      *prometheus.GaugeVec
	EventsReceived     *prometheus.CounterVec
	EventsProcessed    *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
}

// Runner status values reported through ServiceStatus.
const (
	StatusStopped float64 = iota
	StatusStarting
	StatusRunning
	StatusStopping
	StatusFailed
)

// NewMetrics creates the runner metric set. Collectors are created
// unregistered; call Register to attach them to a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "docstreams",
				Subsystem: "runner",
				Name:      "status",
				Help:      "Runner status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"middleware"},
		),

		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docstreams",
				Subsystem: "events",
				Name:      "received_total",
				Help:      "Total number of events received",
			},
			[]string{"middleware"},
		),

		EventsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docstreams",
				Subsystem: "events",
				Name:      "processed_total",
				Help:      "Total number of events processed",
			},
			[]string{"middleware", "status"},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docstreams",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Total number of events forwarded to consumers",
			},
			[]string{"middleware", "consumer"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "docstreams",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Event processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"middleware"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docstreams",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by class",
			},
			[]string{"middleware", "class"},
		),
	}
}

// Register attaches every collector to the registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.ServiceStatus,
		m.EventsReceived,
		m.EventsProcessed,
		m.EventsPublished,
		m.ProcessingDuration,
		m.ErrorsTotal,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}
