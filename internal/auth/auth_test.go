package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"findmyservice.org/internal/market"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	t.Setenv("FINDMY_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	token, expiresAt, err := IssueToken("user-42", "alice@example.com", "user", 30*time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiration, got %v", expiresAt)
	}

	claims, err := VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.UserID != "user-42" {
		t.Fatalf("unexpected userId: %s", claims.UserID)
	}
	if claims.Subject != "alice@example.com" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != "USER" {
		t.Fatalf("role not normalized: %s", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected jti claim")
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	t.Setenv("FINDMY_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	token, _, err := IssueToken("user-1", "bob@example.com", "USER", time.Millisecond)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := VerifyToken(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	t.Setenv("FINDMY_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	token, _, err := IssueToken("user-1", "bob@example.com", "ADMIN", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	forged := parts[0] + "." + parts[1] + ".AAAA"
	if _, err := VerifyToken(forged); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for forged signature, got %v", err)
	}
	if _, err := VerifyToken("not-a-token"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
	if _, err := VerifyToken(""); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for empty, got %v", err)
	}
}

func TestMissingSecret(t *testing.T) {
	t.Setenv("FINDMY_AUTH_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, _, err := IssueToken("u", "a@b.c", "USER", time.Hour); err == nil {
		t.Fatal("expected error when secret is not configured")
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatal("unexpected principal in empty context")
	}
	ctx = ContextWithPrincipal(ctx, Principal{ID: "u1", Email: "a@b.c", Role: market.RoleUser})
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.ID != "u1" || p.Role != market.RoleUser {
		t.Fatalf("unexpected principal: %+v ok=%v", p, ok)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "s3cret"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}
