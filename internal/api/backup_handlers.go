package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/technosupport/fleetwatch/internal/store"
)

type BackupHandler struct {
	Store *store.Store
}

const maxImportBytes = 32 << 20

// GET /api/v1/backup/export
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	raw, err := h.Store.ExportSnapshot(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="fleetwatch_backup.json"`)
	w.Write(raw)
}

// POST /api/v1/backup/import — validation failures reject the whole blob; nothing is
// partially applied.
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := h.Store.ImportSnapshot(r.Context(), raw); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type FactoryResetRequest struct {
	Confirm bool `json:"confirm"`
}

// POST /api/v1/system/factory-reset
func (h *BackupHandler) FactoryReset(w http.ResponseWriter, r *http.Request) {
	var req FactoryResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Store.FactoryReset(r.Context(), req.Confirm); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
