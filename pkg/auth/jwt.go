// Package auth validates the bearer tokens issued by the user service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/amadile/Shopping-site-sub001/pkg/middleware"
)

// ErrInvalidToken is returned for any token that fails parsing or verification.
var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is the JWT payload carried by access tokens.
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// HS256Validator verifies HMAC-SHA256 signed access tokens.
type HS256Validator struct {
	secret []byte
	leeway time.Duration
}

// NewHS256Validator creates a validator for tokens signed with secret.
func NewHS256Validator(secret string) *HS256Validator {
	return &HS256Validator{secret: []byte(secret), leeway: 30 * time.Second}
}

// Validate parses and verifies token and returns the middleware claims.
// It matches middleware.TokenValidator.
func (v *HS256Validator) Validate(token string) (*middleware.Claims, error) {
	var claims TokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return &middleware.Claims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// Sign issues an HS256 token for the given claims. It is used by tests and
// local tooling; production tokens come from the user service.
func (v *HS256Validator) Sign(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
