package handlers

import (
	"errors"
	"net/http"

	"github.com/ukydev/rapidroute-sim/internal/simulation"
	"github.com/ukydev/rapidroute-sim/internal/telemetry"
)

// Error bodies understood by the embedded receivers.
const (
	errNoRoute    = "error: no route selected"
	errNoNextStop = "error: could not find next signal"
)

// GetLocation advances the simulation by one point and returns the
// telemetry frame as plain text.
func (h *SimulationHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	tick, err := h.engine.Tick()
	if err != nil {
		if !errors.Is(err, simulation.ErrNoActiveRoute) {
			h.log.WithError(err).Error("Tick failed")
		}
		writeText(w, http.StatusInternalServerError, errNoRoute)
		return
	}

	nextID := h.registry.IDOf(tick.Next.Name)
	if nextID == 0 {
		writeText(w, http.StatusInternalServerError, errNoNextStop)
		return
	}

	frame := telemetry.Frame{
		Current:  tick.Current,
		Previous: tick.Previous,
		StartID:  h.registry.IDOf(tick.Start.Name),
		EndID:    h.registry.IDOf(tick.End.Name),
		NextID:   nextID,
	}
	writeText(w, http.StatusOK, telemetry.Encode(frame))
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
