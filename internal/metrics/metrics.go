// Package metrics exposes Prometheus counters for dialogue activity.
//
// All methods are safe on a nil *Metrics, so callers that run without
// metrics need no branches.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dialogue"

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	SessionsCreated *prometheus.CounterVec
	MessagesTotal   *prometheus.CounterVec
	RejectedTotal   prometheus.Counter
	SummariesTotal  prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. Pass a fresh prometheus.NewRegistry()
// in tests to avoid clashing with the default registry.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_created_total",
				Help:      "Sessions created, by cause (lazy or restart).",
			},
			[]string{"cause"},
		),
		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Learner messages handled, by whether the topic had its own response pool.",
			},
			[]string{"topic_known"},
		),
		RejectedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rejected_total",
			Help:      "Messages rejected as empty.",
		}),
		SummariesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summary requests served.",
		}),
		gatherer: reg,
	}
}

// Cause labels for SessionsCreated.
const (
	CauseLazy    = "lazy"
	CauseRestart = "restart"
)

// SessionCreated counts a new session.
func (m *Metrics) SessionCreated(cause string) {
	if m == nil {
		return
	}
	m.SessionsCreated.WithLabelValues(cause).Inc()
}

// MessageHandled counts a processed learner message.
func (m *Metrics) MessageHandled(topicKnown bool) {
	if m == nil {
		return
	}
	label := "false"
	if topicKnown {
		label = "true"
	}
	m.MessagesTotal.WithLabelValues(label).Inc()
}

// MessageRejected counts an empty message.
func (m *Metrics) MessageRejected() {
	if m == nil {
		return
	}
	m.RejectedTotal.Inc()
}

// SummaryServed counts a summary request.
func (m *Metrics) SummaryServed() {
	if m == nil {
		return
	}
	m.SummariesTotal.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
