package users

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/technosupport/fleetwatch/internal/auth"
	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/store"
	"github.com/technosupport/fleetwatch/internal/tokens"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountSuspended   = errors.New("account suspended")
)

// Service wraps the store's user collection with password hashing and the
// login flow. Credential failures are deliberately indistinguishable from
// unknown emails.
type Service struct {
	store  *store.Store
	tokens *tokens.Manager
}

func NewService(st *store.Store, tm *tokens.Manager) *Service {
	return &Service{store: st, tokens: tm}
}

type LoginResult struct {
	User         data.User
	AccessToken  string
	RefreshToken string
}

// Login verifies credentials and mints a token pair. Suspended accounts are
// rejected after the password check so the error does not leak account state
// to guessers.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u := s.store.FindUserByEmail(email)
	if u == nil || u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	ok, err := auth.CheckPassword(password, u.PasswordHash)
	if err != nil {
		log.Printf("users: hash check failed for %s: %v", u.ID, err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if u.Status == data.UserSuspended {
		return nil, ErrAccountSuspended
	}

	access, err := s.tokens.GenerateAccessToken(u.ID.String(), string(u.Role))
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID.String(), string(u.Role))
	if err != nil {
		return nil, err
	}

	if err := s.store.TouchUserActivity(ctx, u.ID); err != nil {
		log.Printf("users: activity stamp failed for %s: %v", u.ID, err)
	}

	out := *u
	out.PasswordHash = ""
	return &LoginResult{User: out, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *Service) Refresh(refreshToken string) (string, error) {
	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil {
		return "", tokens.ErrInvalidToken
	}
	if claims.TokenType != tokens.Refresh {
		return "", tokens.ErrInvalidToken
	}
	return s.tokens.GenerateAccessToken(claims.UserID, claims.Role)
}

// Create hashes the password and inserts the user.
func (s *Service) Create(ctx context.Context, u *data.User, password string) error {
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	return s.store.AddUser(ctx, u)
}

// Update applies field changes; a non-empty password is re-hashed.
func (s *Service) Update(ctx context.Context, upd *data.User, password string) error {
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		upd.PasswordHash = hash
	}
	return s.store.UpdateUser(ctx, upd)
}

// Delete removes the user record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.RemoveUser(ctx, id)
}

// List returns the users without password hashes.
func (s *Service) List() []data.User {
	var out []data.User
	s.store.View(func(st *data.State) {
		for _, u := range st.Users {
			cp := *u
			cp.PasswordHash = ""
			out = append(out, cp)
		}
	})
	return out
}
