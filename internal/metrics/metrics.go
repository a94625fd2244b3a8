// Package metrics holds the Prometheus collectors shared by the client and
// the server. Collectors are registered on an explicit registry so tests
// can use a fresh one.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeAuthError   = "auth_error"
	OutcomeRateLimited = "rate_limited"
	OutcomeNetwork     = "network_error"
	OutcomeStorage     = "storage_error"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
)

// Metrics is the set of collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	polls           *prometheus.CounterVec
	emissions       *prometheus.CounterVec
	importantUnread prometheus.Gauge
	threadUpserts   *prometheus.CounterVec
	events          *prometheus.CounterVec
}

// New creates and registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ghnotify_polls_total",
			Help: "Poll cycles by outcome",
		}, []string{"outcome"}),
		emissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ghnotify_emissions_total",
			Help: "OS notifications requested by outcome",
		}, []string{"outcome"}),
		importantUnread: f.NewGauge(prometheus.GaugeOpts{
			Name: "ghnotify_important_unread",
			Help: "Important unread threads after the last successful poll",
		}),
		threadUpserts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ghnotify_thread_upserts_total",
			Help: "Server-side thread upserts by outcome",
		}, []string{"outcome"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ghnotify_events_total",
			Help: "Stream events by operation and type",
		}, []string{"operation", "type"}),
	}
}

// ObservePoll counts a finished poll cycle.
func (m *Metrics) ObservePoll(outcome string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(outcome).Inc()
}

// ObserveEmission counts one display request.
func (m *Metrics) ObserveEmission(outcome string) {
	if m == nil {
		return
	}
	m.emissions.WithLabelValues(outcome).Inc()
}

// SetImportantUnread records the current badge count.
func (m *Metrics) SetImportantUnread(n int) {
	if m == nil {
		return
	}
	m.importantUnread.Set(float64(n))
}

// ObserveUpserts counts n thread upserts with the same outcome.
func (m *Metrics) ObserveUpserts(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.threadUpserts.WithLabelValues(outcome).Add(float64(n))
}

// ObserveEvent counts a published or delivered stream event.
func (m *Metrics) ObserveEvent(operation, eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(operation, eventType).Inc()
}
