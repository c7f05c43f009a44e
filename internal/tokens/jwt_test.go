package tokens_test

import (
	"strings"
	"testing"

	"github.com/technosupport/fleetwatch/internal/tokens"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := tokens.NewManager("test-signing-key")

	tok, err := m.GenerateAccessToken("user-1", "ADMIN")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.ValidateToken(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "ADMIN" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.TokenType != tokens.Access {
		t.Errorf("token type = %s, want access", claims.TokenType)
	}
	if claims.ID == "" {
		t.Error("jti missing")
	}
}

func TestRefreshTokenHasDistinctType(t *testing.T) {
	m := tokens.NewManager("test-signing-key")
	tok, err := m.GenerateRefreshToken("user-1", "VIEWER")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := m.ValidateToken(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.TokenType != tokens.Refresh {
		t.Errorf("token type = %s, want refresh", claims.TokenType)
	}
}

func TestValidateRejectsWrongKey(t *testing.T) {
	tok, err := tokens.NewManager("key-a").GenerateAccessToken("u", "VIEWER")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.NewManager("key-b").ValidateToken(tok); err == nil {
		t.Error("token signed with another key validated")
	}
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	m := tokens.NewManager("test-signing-key")
	tok, err := m.GenerateAccessToken("u", "VIEWER")
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(tok, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	if _, err := m.ValidateToken(strings.Join(parts, ".")); err == nil {
		t.Error("tampered payload validated")
	}
}
