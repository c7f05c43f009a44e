package api

import (
	"encoding/json"
	"net/http"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/store"
)

type NVRHandler struct {
	Store *store.Store
}

type CreateNVRRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Protocol string `json:"protocol"`
	Channels int    `json:"channels"`
}

type UpdateNVRRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
	Protocol string `json:"protocol,omitempty"`
}

// nvrView hides the stored password from list/get responses.
func nvrView(n data.NVRDevice) data.NVRDevice {
	n.Password = ""
	return n
}

// POST /api/v1/nvrs
func (h *NVRHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateNVRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n := &data.NVRDevice{
		Name:     req.Name,
		Address:  req.Address,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		Protocol: req.Protocol,
	}
	if err := h.Store.CreateNVR(r.Context(), n, req.Channels); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, nvrView(*n))
}

// GET /api/v1/nvrs
func (h *NVRHandler) List(w http.ResponseWriter, r *http.Request) {
	var out []data.NVRDevice
	h.Store.View(func(st *data.State) {
		for _, n := range st.NVRs {
			out = append(out, nvrView(*n))
		}
	})
	if out == nil {
		out = []data.NVRDevice{}
	}
	respondJSON(w, http.StatusOK, out)
}

// GET /api/v1/nvrs/{id}
func (h *NVRHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var nv *data.NVRDevice
	h.Store.View(func(st *data.State) {
		if n := st.FindNVR(id); n != nil {
			cp := nvrView(*n)
			nv = &cp
		}
	})
	if nv == nil {
		respondError(w, http.StatusNotFound, "nvr not found")
		return
	}
	respondJSON(w, http.StatusOK, nv)
}

// PUT /api/v1/nvrs/{id}
func (h *NVRHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateNVRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := &data.NVRDevice{
		ID:       id,
		Name:     req.Name,
		Address:  req.Address,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		Protocol: req.Protocol,
	}
	if err := h.Store.UpdateNVR(r.Context(), upd); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/nvrs/{id} — cascades to cameras, faults, alerts and the
// live-view membership.
func (h *NVRHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteNVR(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/nvrs/{id}/test-connection
func (h *NVRHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	status, err := h.Store.TestNVRConnection(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}
