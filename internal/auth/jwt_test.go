package auth

import (
	"errors"
	"testing"
	"time"
)

func testConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "consult-identity",
		Audience: "consult-server",
	}
}

func TestValidateRoundtrip(t *testing.T) {
	cfg := testConfig()

	token, err := GenerateToken(cfg, "user-1", "user", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := NewValidator(cfg).Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Identity != "user-1" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	cfg := testConfig()

	token, err := GenerateToken(cfg, "user-1", "user", -time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = NewValidator(cfg).Validate(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	token, err := GenerateToken(testConfig(), "user-1", "user", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	other := testConfig()
	other.Secret = []byte("different-secret")
	if _, err := NewValidator(other).Validate(token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestValidateWrongIssuer(t *testing.T) {
	cfg := testConfig()
	token, err := GenerateToken(cfg, "user-1", "user", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	strict := testConfig()
	strict.Issuer = "someone-else"
	if _, err := NewValidator(strict).Validate(token); err == nil {
		t.Fatal("expected error for wrong issuer")
	}
}

func TestValidateGarbage(t *testing.T) {
	if _, err := NewValidator(testConfig()).Validate("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
