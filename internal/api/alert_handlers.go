package api

import (
	"net/http"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/store"
)

type AlertHandler struct {
	Store *store.Store
}

// GET /api/v1/alerts — newest first, which is the store's native order.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	severity := data.AlertSeverity(r.URL.Query().Get("severity"))

	var out []data.Alert
	h.Store.View(func(st *data.State) {
		for _, a := range st.Alerts {
			if severity != "" && a.Severity != severity {
				continue
			}
			out = append(out, *a)
		}
	})
	if out == nil {
		out = []data.Alert{}
	}
	respondJSON(w, http.StatusOK, out)
}

// DELETE /api/v1/alerts
func (h *AlertHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.ClearAlerts(r.Context()); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
