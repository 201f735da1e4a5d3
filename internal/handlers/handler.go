// Package handlers implements the HTTP API of the control server.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/rapidroute-sim/internal/db"
	"github.com/ukydev/rapidroute-sim/internal/routing"
	"github.com/ukydev/rapidroute-sim/internal/signals"
	"github.com/ukydev/rapidroute-sim/internal/simulation"
	"github.com/ukydev/rapidroute-sim/internal/waypoints"
)

// SimulationHandler serves the signal catalogue, manual route activation and
// the telemetry feed.
type SimulationHandler struct {
	engine    *simulation.Engine
	registry  *signals.Registry
	sequencer *waypoints.Sequencer
	provider  routing.Provider
	history   db.ActivationCollection
	log       logrus.FieldLogger
}

// NewSimulationHandler creates a handler. history may be nil when the
// activation history is disabled.
func NewSimulationHandler(engine *simulation.Engine, registry *signals.Registry, sequencer *waypoints.Sequencer, provider routing.Provider, history db.ActivationCollection, logger logrus.FieldLogger) *SimulationHandler {
	return &SimulationHandler{
		engine:    engine,
		registry:  registry,
		sequencer: sequencer,
		provider:  provider,
		history:   history,
		log:       logger,
	}
}

type messageResponse struct {
	Message   string   `json:"message"`
	Waypoints []string `json:"waypoints,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}
