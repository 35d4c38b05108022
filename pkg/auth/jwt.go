package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs and validates operator access tokens for the admin
// surface.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
}

func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), expiry: expiry}
}

// Generate issues a signed token for the given operator login.
func (i *TokenIssuer) Generate(login string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  login,
		"role": "operator",
		"iat":  now.Unix(),
		"exp":  now.Add(i.expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses the token and returns the operator login.
func (i *TokenIssuer) Validate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
