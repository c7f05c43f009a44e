package api

import (
	"encoding/json"
	"net/http"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/users"
)

type UserHandler struct {
	Users *users.Service
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type UpdateUserRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Status   string `json:"status,omitempty"`
	Password string `json:"password,omitempty"`
}

// GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	out := h.Users.List()
	if out == nil {
		out = []data.User{}
	}
	respondJSON(w, http.StatusOK, out)
}

// POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u := &data.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  data.UserRole(req.Role),
	}
	if err := h.Users.Create(r.Context(), u, req.Password); err != nil {
		respondStoreError(w, err)
		return
	}
	u.PasswordHash = ""
	respondJSON(w, http.StatusCreated, u)
}

// PUT /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := &data.User{
		ID:     id,
		Name:   req.Name,
		Email:  req.Email,
		Role:   data.UserRole(req.Role),
		Status: data.UserStatus(req.Status),
	}
	if err := h.Users.Update(r.Context(), upd, req.Password); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Users.Delete(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
