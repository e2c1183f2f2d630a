package service

import (
	"testing"
	"time"

	"github.com/rollcall/rollcall-backend/internal/config"
	"github.com/rollcall/rollcall-backend/internal/model"
)

func newAuthService() *AuthService {
	return NewAuthService(&config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4,
	})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newAuthService()

	u := &model.User{Username: "alice", Role: model.RoleStudent, Name: "Alice Johnson"}
	token, err := svc.GenerateToken(u)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("subject = %q, want alice", claims.Subject)
	}
	if claims.Role != model.RoleStudent {
		t.Errorf("role = %q, want student", claims.Role)
	}
	if claims.Name != "Alice Johnson" {
		t.Errorf("name = %q, want Alice Johnson", claims.Name)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	signer := NewAuthService(&config.Config{JWTSecret: "secret-a", JWTExpiry: time.Hour})
	verifier := NewAuthService(&config.Config{JWTSecret: "secret-b", JWTExpiry: time.Hour})

	token, err := signer.GenerateToken(&model.User{Username: "alice", Role: model.RoleStudent})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Fatal("token signed with a different secret should not validate")
	}
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	svc := newAuthService()

	token, err := svc.GenerateToken(&model.User{Username: "eve", Role: model.Role("superuser")})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatal("unknown role should not validate")
	}
}

func TestCheckPassword(t *testing.T) {
	svc := newAuthService()

	hash, err := svc.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := svc.CheckPassword(hash, "hunter22"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := svc.CheckPassword(hash, "wrong"); err != ErrInvalidCredentials {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
}
