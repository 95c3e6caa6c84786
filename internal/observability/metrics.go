package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters for the ingestion daemon,
// including the consistency-anomaly signals used for alerting.
type Metrics struct {
	Observations        *prometheus.CounterVec // label: measure_type
	ObservationsDropped prometheus.Counter     // unrecognised measure type, no write performed
	Archived            prometheus.Counter
	ArchiveFailures     prometheus.Counter
	GasReadings         prometheus.Counter
	Placements          prometheus.Counter

	// Anomaly signals: more than one current record closed for a
	// single station, and closures producing valid_to < valid_from.
	StaleCurrentClosed prometheus.Counter
	InvertedIntervals  prometheus.Counter
}

// NewMetrics creates and registers all daemon metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.register(prometheus.DefaultRegisterer)
	return m
}

// NewTestMetrics creates unregistered metrics for use in tests, where
// registering twice against the default registry would panic.
func NewTestMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "store_mqtt",
			Name:      "observations_total",
			Help:      "Observations received per measure type.",
		}, []string{"measure_type"}),
		ObservationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "store_mqtt",
			Name:      "observations_dropped_total",
			Help:      "Observations rejected because the measure type is not configured.",
		}),
		Archived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "store_mqtt",
			Name:      "observations_archived_total",
			Help:      "Observations written to an archive table.",
		}),
		ArchiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "store_mqtt",
			Name:      "archive_failures_total",
			Help:      "Archive writes that failed; the last-value cache was still updated.",
		}),
		GasReadings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "store_mqtt",
			Name:      "gas_readings_total",
			Help:      "Gas meter pulses archived.",
		}),
		Placements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "store_mqtt",
			Name:      "station_placements_total",
			Help:      "Station placement records inserted.",
		}),
		StaleCurrentClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "store_mqtt",
			Name:      "stale_current_closed_total",
			Help:      "Current station records closed beyond the expected single one.",
		}),
		InvertedIntervals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "store_mqtt",
			Name:      "inverted_intervals_total",
			Help:      "Closures that produced a valid_to before valid_from.",
		}),
	}
}

func (m *Metrics) register(r prometheus.Registerer) {
	r.MustRegister(
		m.Observations,
		m.ObservationsDropped,
		m.Archived,
		m.ArchiveFailures,
		m.GasReadings,
		m.Placements,
		m.StaleCurrentClosed,
		m.InvertedIntervals,
	)
}
