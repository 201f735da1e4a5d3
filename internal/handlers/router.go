package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ukydev/rapidroute-sim/internal/metrics"
	"github.com/ukydev/rapidroute-sim/internal/middleware"
)

type RouterConfig struct {
	Simulation *SimulationHandler
	RouteFeed  http.Handler // websocket hub; /ws/route is not mounted when nil
	Metrics    *metrics.Metrics
	Logger     logrus.FieldLogger

	// ActivationLimiter throttles POST /start-manual-route when set.
	ActivationLimiter *middleware.RateLimiter
	EnableDebug       bool
}

// NewRouter wires every endpoint behind the common middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Simulation
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.CORS)

	r.Get("/", ControlPanel)
	r.Get("/get-signals", h.GetSignals)
	r.Get("/location", h.GetLocation)
	r.Get("/route", h.GetRoute)
	r.Get("/route-history", h.GetRouteHistory)
	r.Get("/healthz", h.Health)

	r.Group(func(r chi.Router) {
		if cfg.ActivationLimiter != nil {
			r.Use(cfg.ActivationLimiter.Handler)
		}
		r.Post("/start-manual-route", h.StartManualRoute)
	})

	if cfg.RouteFeed != nil {
		r.Handle("/ws/route", cfg.RouteFeed)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{}))
	}
	if cfg.EnableDebug {
		r.Get("/debug/state", h.DebugState)
	}

	return r
}
