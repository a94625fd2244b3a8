package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePoll(OutcomeOK)
	m.ObservePoll(OutcomeOK)
	m.ObservePoll(OutcomeNetwork)
	m.ObserveEmission(OutcomeFailed)
	m.SetImportantUnread(7)
	m.ObserveUpserts(OutcomeOK, 3)
	m.ObserveUpserts(OutcomeOK, 0)
	m.ObserveEvent("publish", "sync")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues(OutcomeNetwork)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emissions.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.importantUnread))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.threadUpserts.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("publish", "sync")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePoll(OutcomeOK)
		m.ObserveEmission(OutcomeOK)
		m.SetImportantUnread(1)
		m.ObserveUpserts(OutcomeOK, 1)
		m.ObserveEvent("publish", "sync")
	})
}
