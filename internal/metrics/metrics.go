// Package metrics exports the Prometheus counters of the biolink server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "biolink"

// Result label values.
const (
	ResultOK         = "ok"
	ResultError      = "error"
	ResultBadRequest = "bad_request"
	ResultMismatch   = "mismatch"
)

type Metrics struct {
	PageRenders      *prometheus.CounterVec
	DocumentReads    *prometheus.CounterVec
	DocumentWrites   *prometheus.CounterVec
	LoginAttempts    *prometheus.CounterVec
	RateLimitRejects prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is handy in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PageRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_renders_total",
			Help:      "Public page responses by result.",
		}, []string{"result"}),
		DocumentReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_reads_total",
			Help:      "Document API reads by result.",
		}, []string{"result"}),
		DocumentWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_writes_total",
			Help:      "Document API writes by result.",
		}, []string{"result"}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Admin login attempts by result.",
		}, []string{"result"}),
		RateLimitRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the login rate limiter.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.PageRenders,
			m.DocumentReads,
			m.DocumentWrites,
			m.LoginAttempts,
			m.RateLimitRejects,
		)
	}

	return m
}
