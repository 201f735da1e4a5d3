package handlers

import (
	_ "embed"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"github.com/ukydev/rapidroute-sim/internal/simulation"
)

//go:embed static/control_panel.html
var controlPanel []byte

// ControlPanel serves the browser control page.
func ControlPanel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(controlPanel)
}

type healthResponse struct {
	Status string          `json:"status"`
	Mode   simulation.Mode `json:"mode"`
	Active bool            `json:"active"`
}

func (h *SimulationHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Mode: snap.Mode, Active: snap.Active})
}

var dumper = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}

// DebugState dumps the engine snapshot. Only mounted outside production.
func (h *SimulationHandler) DebugState(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, dumper.Sdump(h.engine.Snapshot()))
}
