package handlers

import "net/http"

// GetSignals returns the catalogue as {"id": "name"}.
func (h *SimulationHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.NameByID())
}
