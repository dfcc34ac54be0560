package token

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-signing-secret-with-enough-entropy"

func TestIssueVerifyRoundTrip(t *testing.T) {
	signed, err := Issue("ops_team_ab12cd34", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := Verify(signed, testSecret)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.KeyID != "ops_team_ab12cd34" {
		t.Errorf("KeyID: got %q, want %q", claims.KeyID, "ops_team_ab12cd34")
	}
}

func TestDecodeUnverified(t *testing.T) {
	signed, err := Issue("reader_99ff00aa", "some-other-secret", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// The decode step never needs the secret.
	keyID, err := DecodeUnverified(signed)
	if err != nil {
		t.Fatalf("DecodeUnverified: %v", err)
	}
	if keyID != "reader_99ff00aa" {
		t.Errorf("keyId: got %q, want %q", keyID, "reader_99ff00aa")
	}
}

func TestDecodeUnverifiedGarbage(t *testing.T) {
	if _, err := DecodeUnverified("garbage.token.here"); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeUnverifiedMissingKeyID(t *testing.T) {
	// A structurally valid token whose payload has no keyId claim.
	signed, err := Issue("", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := DecodeUnverified(signed); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	signed, err := Issue("k1", testSecret, -time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Verify(signed, testSecret); !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	signed, err := Issue("k1", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Verify(signed, "a-different-secret"); !errors.Is(err, ErrBadSignature) {
		t.Errorf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	if _, err := Verify("not-a-token", testSecret); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}
