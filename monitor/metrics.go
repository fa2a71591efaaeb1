package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "powerwindow"

const (
	DropOutOfOrder = "out_of_order"
	DropDecode     = "decode"
	DropUnknown    = "unknown_signal"
)

type Metrics struct {
	readings *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	average  *prometheus.GaugeVec
	latched  *prometheus.GaugeVec
}

// NewMetrics registers the collectors on reg and panics on duplicates.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		readings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_total",
				Help:      "Readings accepted into a window",
			},
			[]string{"signal"},
		),
		dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_dropped_total",
				Help:      "Readings that never reached a window",
			},
			[]string{"signal", "reason"},
		),
		average: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "average",
				Help:      "Time-weighted window average after the latest reading",
			},
			[]string{"signal"},
		),
		latched: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "latched_value",
				Help:      "Value of the latest reading",
			},
			[]string{"signal"},
		),
	}
}

func (m *Metrics) Dropped(signal, reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(signal, reason).Inc()
}

func (m *Metrics) observe(s Sample) {
	if m == nil {
		return
	}
	m.readings.WithLabelValues(s.Signal).Inc()
	m.average.WithLabelValues(s.Signal).Set(s.Average)
	m.latched.WithLabelValues(s.Signal).Set(s.Value)
}
