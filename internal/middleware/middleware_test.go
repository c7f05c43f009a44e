package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/middleware"
	"github.com/technosupport/fleetwatch/internal/tokens"
)

type staticValidator struct {
	claims *tokens.Claims
	err    error
}

func (v *staticValidator) ValidateToken(string) (*tokens.Claims, error) {
	return v.claims, v.err
}

type memBlacklist struct {
	revoked map[string]bool
	err     error
}

func (b *memBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return b.revoked[jti], b.err
}

func (b *memBlacklist) AddToBlacklist(_ context.Context, jti string, _ time.Duration) error {
	if b.revoked == nil {
		b.revoked = map[string]bool{}
	}
	b.revoked[jti] = true
	return nil
}

func okHandler(t *testing.T, gotCtx **middleware.AuthContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ac, ok := middleware.GetAuthContext(r.Context()); ok && gotCtx != nil {
			*gotCtx = ac
		}
		w.WriteHeader(http.StatusOK)
	})
}

func accessClaims(jti, role string) *tokens.Claims {
	c := &tokens.Claims{UserID: "u1", Role: role, TokenType: tokens.Access}
	c.ID = jti
	return c
}

func TestJWTAuthInjectsContext(t *testing.T) {
	var got *middleware.AuthContext
	m := middleware.NewJWTAuth(&staticValidator{claims: accessClaims("jti-1", "ADMIN")}, &memBlacklist{})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	m.Middleware(okHandler(t, &got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got == nil || got.UserID != "u1" || got.Role != "ADMIN" || got.TokenID != "jti-1" {
		t.Errorf("auth context = %+v", got)
	}
}

func TestJWTAuthRejects(t *testing.T) {
	cases := []struct {
		name      string
		header    string
		validator middleware.TokenValidator
		blacklist *memBlacklist
	}{
		{"missing header", "", &staticValidator{claims: accessClaims("j", "VIEWER")}, &memBlacklist{}},
		{"malformed header", "Token x", &staticValidator{claims: accessClaims("j", "VIEWER")}, &memBlacklist{}},
		{"invalid token", "Bearer x", &staticValidator{err: errors.New("bad")}, &memBlacklist{}},
		{"refresh token", "Bearer x", &staticValidator{claims: &tokens.Claims{TokenType: tokens.Refresh}}, &memBlacklist{}},
		{"revoked", "Bearer x", &staticValidator{claims: accessClaims("gone", "VIEWER")}, &memBlacklist{revoked: map[string]bool{"gone": true}}},
		{"blacklist down fails closed", "Bearer x", &staticValidator{claims: accessClaims("j", "VIEWER")}, &memBlacklist{err: errors.New("redis down")}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := middleware.NewJWTAuth(c.validator, c.blacklist)
			req := httptest.NewRequest("GET", "/", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			m.Middleware(okHandler(t, nil)).ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		role string
		min  data.UserRole
		want int
	}{
		{"ADMIN", data.RoleAdmin, http.StatusOK},
		{"OPERATOR", data.RoleAdmin, http.StatusForbidden},
		{"OPERATOR", data.RoleOperator, http.StatusOK},
		{"VIEWER", data.RoleOperator, http.StatusForbidden},
		{"VIEWER", data.RoleViewer, http.StatusOK},
		{"", data.RoleViewer, http.StatusForbidden},
	}

	for _, c := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		ctx := middleware.WithAuthContext(req.Context(), &middleware.AuthContext{UserID: "u", Role: c.role})
		rec := httptest.NewRecorder()
		middleware.RequireRole(c.min)(okHandler(t, nil)).ServeHTTP(rec, req.WithContext(ctx))
		if rec.Code != c.want {
			t.Errorf("role %q min %s: status = %d, want %d", c.role, c.min, rec.Code, c.want)
		}
	}
}

func TestRequireRoleWithoutAuthContext(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.RequireRole(data.RoleViewer)(okHandler(t, nil)).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
