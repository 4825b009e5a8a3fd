package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token parameters shared by the gateway and the messaging handshake.
const (
	// Issuer is the fixed issuer claim on every minted token.
	Issuer = "snibble-auth"

	// TokenTTL is the validity window of a minted token.
	TokenTTL = 120 * time.Hour

	// tokenLeeway is the clock skew allowed during verification.
	tokenLeeway = 60 * time.Second
)

// Token verification errors.
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

type tokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies HMAC-SHA256 bearer tokens binding a
// username.
type TokenService struct {
	secret []byte

	// now is replaceable in tests to simulate expiry.
	now func() time.Time
}

// NewTokenService creates a TokenService signing with the given secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Mint produces a signed token for the username, valid for TokenTTL.
func (s *TokenService) Mint(username string) (string, error) {
	now := s.now()

	claims := tokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

// Verify checks the token's signature, issuer, and validity window and
// returns the bound username. Expired tokens return ErrTokenExpired; every
// other failure returns ErrTokenInvalid.
func (s *TokenService) Verify(tokenString string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithTimeFunc(s.now),
	)

	var claims tokenClaims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.Username == "" {
		return "", fmt.Errorf("%w: missing username claim", ErrTokenInvalid)
	}

	return claims.Username, nil
}
