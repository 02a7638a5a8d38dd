package webservices

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "acis_"

	resultSuccess = "success"
	resultError   = "error"
)

// Metrics records web services calls by call name and outcome.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics creates the call metrics and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "requests_total",
				Help: "Total ACIS web services calls by call and result",
			},
			[]string{"call", "result"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "request_latency_seconds",
				Help:    "ACIS web services call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"call"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.latency)
	}
	return m
}

func (m *Metrics) observe(call string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.requests.WithLabelValues(call, result).Inc()
	m.latency.WithLabelValues(call).Observe(time.Since(start).Seconds())
}
