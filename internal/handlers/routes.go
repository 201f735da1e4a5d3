package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/rapidroute-sim/internal/db"
	"github.com/ukydev/rapidroute-sim/internal/routing"
	"github.com/ukydev/rapidroute-sim/internal/simulation"
)

const maxHistoryLimit = 500

type manualRouteRequest struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// StartManualRoute plans a route between two signal ids and makes it the
// active route. The previous route stays active if planning fails.
func (h *SimulationHandler) StartManualRoute(w http.ResponseWriter, r *http.Request) {
	if h.engine.Mode() != simulation.ModeManual {
		writeMessage(w, http.StatusConflict, "Error: Manual routes are disabled in pool mode.")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	var req manualRouteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Start == nil || req.End == nil {
		writeMessage(w, http.StatusBadRequest, "start and end are required")
		return
	}

	start, err := h.registry.LookupByID(*req.Start)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Unknown start signal %d", *req.Start))
		return
	}
	end, err := h.registry.LookupByID(*req.End)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Unknown end signal %d", *req.End))
		return
	}

	log := h.log.WithFields(logrus.Fields{"start": start.Name, "end": end.Name})
	log.Info("Manual route requested")

	route, err := simulation.Plan(r.Context(), h.provider, h.sequencer, start, end)
	if err != nil {
		log.WithError(err).Error("Could not calculate route")
		writeMessage(w, http.StatusInternalServerError, "Error: Could not calculate route.")
		return
	}
	log.WithField("points", len(route.Points)).Infof("Full Path: %s", strings.Join(route.WaypointNames(), " -> "))

	if err := h.engine.Activate(route); err != nil {
		log.WithError(err).Error("Could not activate route")
		writeMessage(w, http.StatusInternalServerError, "Error: Could not calculate route.")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message:   "Simulation started successfully!",
		Waypoints: route.WaypointNames(),
	})
}

// GetRoute returns the active route as [[lat, lon], ...], or [] when idle.
// With ?format=polyline it returns the encoded polyline as plain text.
func (h *SimulationHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	points := h.engine.Points()
	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, points)
	case "polyline":
		writeText(w, http.StatusOK, routing.EncodePolyline(points))
	default:
		writeMessage(w, http.StatusBadRequest, "format must be json or polyline")
	}
}

// GetRouteHistory returns recent activations, newest first.
func (h *SimulationHandler) GetRouteHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Route history is disabled")
		return
	}

	limit := int64(db.DefaultHistoryLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			writeMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	activations, err := h.history.FindActivations(r.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to read route history")
		writeMessage(w, http.StatusInternalServerError, "Failed to read route history")
		return
	}
	writeJSON(w, http.StatusOK, activations)
}
