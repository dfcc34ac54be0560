// Package token encodes and verifies the bearer tokens presented by API
// keys. Each key signs its own tokens with its stored secret, so structural
// decoding (to discover the claimed key id) and cryptographic verification
// (once the matching secret is known) are separate steps.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed indicates the token cannot be parsed or its payload
	// lacks a keyId claim.
	ErrMalformed = errors.New("malformed token")
	// ErrExpired indicates the token's expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrBadSignature indicates the HMAC does not match the supplied secret.
	ErrBadSignature = errors.New("invalid token signature")
)

// Claims is the payload shape consumed from bearer tokens.
type Claims struct {
	KeyID string `json:"keyId"`
	jwt.RegisteredClaims
}

// DecodeUnverified extracts the claimed keyId from a token without checking
// the signature. The signing secret is only discoverable after the keyId is
// known, so no verification is possible at this stage.
func DecodeUnverified(tokenStr string) (string, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if claims.KeyID == "" {
		return "", ErrMalformed
	}
	return claims.KeyID, nil
}

// Verify checks the token cryptographically against the given secret and
// returns its claims. Expiry and signature failures are distinguishable.
func Verify(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
	}
	if !tok.Valid {
		return nil, ErrBadSignature
	}
	return claims, nil
}

// Issue creates a signed token for the given key id using its secret.
func Issue(keyID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		KeyID: keyID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}
