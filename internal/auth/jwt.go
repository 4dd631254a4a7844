package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired and ErrTokenInvalid are both surfaced to clients as a
	// generic authentication failure; the distinction exists for server-side
	// logging only.
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenService issues and validates signed session tokens carrying the phone
// number as the subject claim.
type TokenService struct {
	secret  []byte
	expires time.Duration
}

// NewTokenService creates a token service. An empty secret is a configuration
// error and is fatal at process start, not per request.
func NewTokenService(secret string, expires time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}
	if expires <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", expires)
	}
	return &TokenService{secret: []byte(secret), expires: expires}, nil
}

// Issue signs a token with subject=phone, issued-at=now and the configured
// expiry.
func (s *TokenService) Issue(phone string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   phone,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expires)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature and expiry and returns the subject phone.
func (s *TokenService) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
