package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/store"
)

// FrameAnalyzer is the boundary to the frame-analysis service. Degraded
// results come back as values, never errors.
type FrameAnalyzer interface {
	Analyze(ctx context.Context, frame []byte, cameraName, location string) data.AnalysisResult
}

type CameraHandler struct {
	Store    *store.Store
	Analyzer FrameAnalyzer
}

// GET /api/v1/cameras
func (h *CameraHandler) List(w http.ResponseWriter, r *http.Request) {
	var out []data.Camera
	h.Store.View(func(st *data.State) {
		for _, c := range st.Cameras {
			out = append(out, *c)
		}
	})
	if out == nil {
		out = []data.Camera{}
	}
	respondJSON(w, http.StatusOK, out)
}

// GET /api/v1/cameras/{id}
func (h *CameraHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var cam *data.Camera
	h.Store.View(func(st *data.State) {
		if c := st.FindCamera(id); c != nil {
			cp := *c
			cam = &cp
		}
	})
	if cam == nil {
		respondError(w, http.StatusNotFound, "camera not found")
		return
	}
	respondJSON(w, http.StatusOK, cam)
}

// POST /api/v1/cameras/{id}/reconnect
func (h *CameraHandler) Reconnect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.ReconnectCamera(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type AnalyzeRequest struct {
	Frame []byte `json:"frame"` // JPEG bytes, base64 on the wire
}

type AnalyzeResponse struct {
	Result  data.AnalysisResult `json:"result"`
	Alerted bool                `json:"alerted"`
}

// POST /api/v1/cameras/{id}/analyze
//
// The analysis call runs outside the store lock; only the result application
// is serialized with ticks and other user actions.
func (h *CameraHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Frame) == 0 {
		respondError(w, http.StatusBadRequest, "frame is required")
		return
	}

	var name, location string
	found := false
	h.Store.View(func(st *data.State) {
		if c := st.FindCamera(id); c != nil {
			name, location, found = c.Name, c.Location, true
		}
	})
	if !found {
		respondError(w, http.StatusNotFound, "camera not found")
		return
	}

	res := h.Analyzer.Analyze(r.Context(), req.Frame, name, location)
	alerted, err := h.Store.ApplyAnalysis(r.Context(), id, &res, req.Frame)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AnalyzeResponse{Result: res, Alerted: alerted})
}

// PUT /api/v1/cameras/{id}/pin
func (h *CameraHandler) Pin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.PinCamera(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/cameras/{id}/pin
func (h *CameraHandler) Unpin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.UnpinCamera(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/live — the pinned cameras, in store order.
func (h *CameraHandler) LiveView(w http.ResponseWriter, r *http.Request) {
	var out []data.Camera
	h.Store.View(func(st *data.State) {
		for _, c := range st.Cameras {
			if st.Pinned[c.ID] {
				out = append(out, *c)
			}
		}
	})
	if out == nil {
		out = []data.Camera{}
	}
	respondJSON(w, http.StatusOK, out)
}
