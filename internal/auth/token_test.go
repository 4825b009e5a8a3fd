package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenMintVerify(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.Mint("alice")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	username, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if username != "alice" {
		t.Errorf("Verify returned %q, want %q", username, "alice")
	}
}

func TestTokenExpiry(t *testing.T) {
	svc := NewTokenService("test-secret")

	issued := time.Now()
	svc.now = func() time.Time { return issued }

	token, err := svc.Mint("alice")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// Just inside the window, including leeway.
	svc.now = func() time.Time { return issued.Add(TokenTTL - time.Minute) }
	if _, err := svc.Verify(token); err != nil {
		t.Errorf("Verify before expiry: %v", err)
	}

	// Well past the window.
	svc.now = func() time.Time { return issued.Add(TokenTTL + time.Hour) }
	_, err = svc.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify after expiry = %v, want ErrTokenExpired", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	minter := NewTokenService("secret-a")
	verifier := NewTokenService("secret-b")

	token, err := minter.Mint("alice")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	_, err = verifier.Verify(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify with wrong secret = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenWrongIssuer(t *testing.T) {
	secret := []byte("test-secret")

	claims := tokenClaims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	svc := NewTokenService("test-secret")
	if _, err := svc.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify with wrong issuer = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenMissingUsernameClaim(t *testing.T) {
	secret := []byte("test-secret")

	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	svc := NewTokenService("test-secret")
	if _, err := svc.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify without username claim = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenMalformed(t *testing.T) {
	svc := NewTokenService("test-secret")

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q) = %v, want ErrTokenInvalid", token, err)
		}
	}
}
