package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCalendarMetrics(reg)

	m.ObserveFetch("week", "ok", 0.2)
	m.ObserveFetch("week", "ok", 0.1)
	m.ObserveFetch("month", "error", 1.5)
	m.ObserveStaleResponse("week")
	m.ObserveSubmission("create", "ok")
	m.SetActiveSessions(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetchTotal.WithLabelValues("week", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchTotal.WithLabelValues("month", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleResponses.WithLabelValues("week")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("create", "ok")))

	var gauge dto.Metric
	require.NoError(t, m.activeSessions.Write(&gauge))
	assert.Equal(t, 4.0, gauge.GetGauge().GetValue())

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "clinic_calendar_fetch_latency_seconds")
}

func TestCalendarMetricsDefaultRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	prev := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = reg
	defer func() { prometheus.DefaultRegisterer = prev }()

	m := NewCalendarMetrics(nil)
	m.ObserveFetch("day", "ok", 0.01)
	assert.Equal(t, 1, testutil.CollectAndCount(m.fetchTotal))
}

func TestCalendarMetricsNilSafe(t *testing.T) {
	var m *CalendarMetrics
	m.ObserveFetch("day", "ok", 0.1)
	m.ObserveStaleResponse("day")
	m.ObserveSubmission("edit", "error")
	m.SetActiveSessions(1)
}
