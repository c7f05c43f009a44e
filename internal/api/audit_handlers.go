package api

import (
	"net/http"
	"strconv"

	"github.com/technosupport/fleetwatch/internal/audit"
)

type AuditHandler struct {
	Audit *audit.Service
}

// GET /api/v1/audit?action=nvr.delete&result=success&limit=50
func (h *AuditHandler) Query(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		respondError(w, http.StatusServiceUnavailable, "audit trail disabled")
		return
	}
	filter := audit.Filter{
		Action: r.URL.Query().Get("action"),
		Result: r.URL.Query().Get("result"),
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.Limit = n
		}
	}

	events, err := h.Audit.QueryEvents(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "audit query failed")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}
