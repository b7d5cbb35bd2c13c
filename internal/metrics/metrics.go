// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicdesk_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "civicdesk_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	ComplaintsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicdesk_complaints_created_total",
		Help: "Complaints submitted by category",
	}, []string{"category"})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicdesk_status_transitions_total",
		Help: "Applied complaint status changes",
	}, []string{"from", "to"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicdesk_events_published_total",
		Help: "Complaint events handed to a sink, by sink and result",
	}, []string{"sink", "result"})

	LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "civicdesk_live_clients",
		Help: "Connected live feed websocket clients",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
