package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("super-secret", time.Hour)
	userID := "64f1c0ffee0000000000aaaa"

	tok, err := svc.Issue(userID)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	gotID, issuedAt, err := svc.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if gotID != userID {
		t.Fatalf("userID mismatch: got %q want %q", gotID, userID)
	}
	if time.Since(issuedAt) > time.Minute {
		t.Fatalf("issuedAt too far in the past: %v", issuedAt)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("secret", -1*time.Second)
	tok, err := svc.Issue("u1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, _, err = svc.Verify(tok)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenService("right-secret", time.Hour).Issue("u2")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, _, err = NewTokenService("wrong-secret", time.Hour).Verify(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("k", time.Hour)
	for _, tok := range []string{"", "not.a.jwt", "a.b"} {
		if _, _, err := svc.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q): expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestGenerateResetToken(t *testing.T) {
	t.Parallel()

	raw, digest, expiresAt, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken error: %v", err)
	}
	if len(raw) != 64 {
		t.Fatalf("raw token should be 32 hex-encoded bytes, got len %d", len(raw))
	}
	if digest == raw {
		t.Fatalf("digest must not equal the raw token")
	}
	if HashResetToken(raw) != digest {
		t.Fatalf("digest must be recomputable from the raw token")
	}

	ttl := time.Until(expiresAt)
	if ttl < 9*time.Minute || ttl > 10*time.Minute {
		t.Fatalf("expiry should be ~10 minutes out, got %v", ttl)
	}

	raw2, _, _, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken error: %v", err)
	}
	if raw == raw2 {
		t.Fatalf("two generated tokens must differ")
	}
}

func TestHashResetToken_Deterministic(t *testing.T) {
	t.Parallel()

	a := HashResetToken("abc")
	b := HashResetToken("abc")
	if a != b {
		t.Fatalf("digest not deterministic: %q vs %q", a, b)
	}
	if strings.Contains(a, "abc") {
		t.Fatalf("digest leaks the input")
	}
}
