package api

import (
	"net/http"
	"time"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/faults"
	"github.com/technosupport/fleetwatch/internal/store"
)

type FaultHandler struct {
	Store *store.Store
}

// GET /api/v1/faults?open=true
func (h *FaultHandler) List(w http.ResponseWriter, r *http.Request) {
	openOnly := r.URL.Query().Get("open") == "true"

	var out []data.FaultRecord
	h.Store.View(func(st *data.State) {
		for _, f := range st.Faults {
			if openOnly && !f.Open() {
				continue
			}
			out = append(out, *f)
		}
	})
	if out == nil {
		out = []data.FaultRecord{}
	}
	respondJSON(w, http.StatusOK, out)
}

// POST /api/v1/faults/{id}/ack
func (h *FaultHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.AcknowledgeFault(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/faults/report — JSON rows by default, CSV with ?format=csv.
func (h *FaultHandler) Report(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	var rows []faults.ReportRow
	h.Store.View(func(st *data.State) {
		rows = faults.BuildReport(st.Faults, now)
	})

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="fault_report.csv"`)
		if err := faults.WriteCSV(w, rows); err != nil {
			respondError(w, http.StatusInternalServerError, "report write failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
