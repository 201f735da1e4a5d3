// Package metrics provides Prometheus metrics for the route simulator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	TicksTotal             prometheus.Counter
	ActivationsTotal       *prometheus.CounterVec // mode
	WaypointArrivalsTotal  prometheus.Counter
	ProviderFailuresTotal  prometheus.Counter
	BroadcastFailuresTotal *prometheus.CounterVec // sink
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapidroute_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rapidroute_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ticksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rapidroute_ticks_total",
		Help: "Route points consumed by telemetry ticks",
	})

	activationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapidroute_route_activations_total",
			Help: "Routes activated, by simulation mode",
		},
		[]string{"mode"},
	)

	arrivalsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rapidroute_waypoint_arrivals_total",
		Help: "Waypoints marked as passed",
	})

	providerFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rapidroute_route_provider_failures_total",
		Help: "Failed route provider calls",
	})

	broadcastFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapidroute_broadcast_failures_total",
			Help: "Failed route broadcasts, by sink",
		},
		[]string{"sink"},
	)

	registry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		ticksTotal,
		activationsTotal,
		arrivalsTotal,
		providerFailuresTotal,
		broadcastFailuresTotal,
	)

	return &Metrics{
		Registry:               registry,
		HTTPRequestsTotal:      httpRequestsTotal,
		HTTPRequestDuration:    httpRequestDuration,
		TicksTotal:             ticksTotal,
		ActivationsTotal:       activationsTotal,
		WaypointArrivalsTotal:  arrivalsTotal,
		ProviderFailuresTotal:  providerFailuresTotal,
		BroadcastFailuresTotal: broadcastFailuresTotal,
	}
}
