package metrics

import "github.com/prometheus/client_golang/prometheus"

// CalendarMetrics exposes counters/histograms for calendar flows.
type CalendarMetrics struct {
	fetchTotal     *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	staleResponses *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

func NewCalendarMetrics(reg prometheus.Registerer) *CalendarMetrics {
	m := &CalendarMetrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "calendar",
			Name:      "fetch_total",
			Help:      "Total appointment range fetches",
		}, []string{"view", "status"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "calendar",
			Name:      "fetch_latency_seconds",
			Help:      "Latency of appointment range fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view"}),
		staleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "calendar",
			Name:      "stale_responses_total",
			Help:      "Range fetch results dropped because a newer request superseded them",
		}, []string{"view"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "calendar",
			Name:      "submissions_total",
			Help:      "Appointment dialog submissions",
		}, []string{"mode", "status"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "calendar",
			Name:      "active_sessions",
			Help:      "Calendar sessions held in memory",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.fetchTotal, m.fetchLatency, m.staleResponses, m.submissions, m.activeSessions)
	return m
}

func (m *CalendarMetrics) ObserveFetch(view, status string, seconds float64) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(view, status).Inc()
	m.fetchLatency.WithLabelValues(view).Observe(seconds)
}

func (m *CalendarMetrics) ObserveStaleResponse(view string) {
	if m == nil {
		return
	}
	m.staleResponses.WithLabelValues(view).Inc()
}

func (m *CalendarMetrics) ObserveSubmission(mode, status string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(mode, status).Inc()
}

func (m *CalendarMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
