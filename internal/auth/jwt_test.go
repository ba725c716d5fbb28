package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/tapcard/storefront/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	adminID := uuid.New()
	role := "ADMIN"

	token, err := auth.GenerateToken(secret, adminID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.AdminID != adminID {
		t.Errorf("admin ID: got %v, want %v", claims.AdminID, adminID)
	}
	if claims.Role != role {
		t.Errorf("role: got %v, want %v", claims.Role, role)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", uuid.New(), "STAFF")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	adminID := uuid.New()
	token, err := auth.GenerateRefreshToken("secret", adminID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	got, err := auth.ValidateRefreshToken("secret", token)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}
	if got != adminID {
		t.Errorf("admin ID: got %v, want %v", got, adminID)
	}

	if _, err := auth.ValidateRefreshToken("other", token); err == nil {
		t.Error("expected error with wrong secret")
	}
}

func TestAccessTokenIsNotARefreshToken(t *testing.T) {
	token, _ := auth.GenerateToken("secret", uuid.New(), "ADMIN")
	if _, err := auth.ValidateRefreshToken("secret", token); err == nil {
		t.Fatal("access token has no subject and must not refresh")
	}
}
