package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors of the HTTP layer.
type Metrics struct {
	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
	// ResidualItems counts items a board delete left behind after the retry ceiling.
	ResidualItems prometheus.Counter
	BoardsDeleted *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kanban_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kanban_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		ResidualItems: f.NewCounter(prometheus.CounterOpts{
			Name: "kanban_cascade_residual_items_total",
			Help: "Items still present after a board delete exhausted its retries.",
		}),
		BoardsDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kanban_boards_deleted_total",
			Help: "Board deletes by outcome (complete or partial).",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeDeleteBoard(residual int) {
	if residual == 0 {
		m.BoardsDeleted.WithLabelValues("complete").Inc()
		return
	}
	m.BoardsDeleted.WithLabelValues("partial").Inc()
	m.ResidualItems.Add(float64(residual))
}
