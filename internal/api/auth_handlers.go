package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/technosupport/fleetwatch/internal/auth"
	"github.com/technosupport/fleetwatch/internal/middleware"
	"github.com/technosupport/fleetwatch/internal/users"
)

type AuthHandler struct {
	Users     *users.Service
	Blacklist auth.TokenBlacklist
	AccessTTL time.Duration
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request")
		return
	}

	res, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// One message for bad email, bad password and suspension alike.
		if errors.Is(err, users.ErrInvalidCredentials) || errors.Is(err, users.ErrAccountSuspended) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user": res.User,
		"tokens": TokenResponse{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			ExpiresIn:    int(h.AccessTTL.Seconds()),
		},
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request")
		return
	}

	access, err := h.Users.Refresh(req.RefreshToken)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{
		AccessToken: access,
		ExpiresIn:   int(h.AccessTTL.Seconds()),
	})
}

// Logout revokes the presented access token for its remaining lifetime.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := middleware.GetAuthContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.Blacklist != nil {
		if err := h.Blacklist.AddToBlacklist(r.Context(), ac.TokenID, h.AccessTTL); err != nil {
			respondError(w, http.StatusInternalServerError, "logout failed")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
