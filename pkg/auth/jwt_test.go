package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHS256Validator_RoundTrip(t *testing.T) {
	v := NewHS256Validator("s3cret")

	token, err := v.Sign("user-1", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestHS256Validator_WrongSecret(t *testing.T) {
	token, err := NewHS256Validator("one").Sign("user-1", "customer", time.Hour)
	require.NoError(t, err)

	_, err = NewHS256Validator("two").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHS256Validator_Expired(t *testing.T) {
	v := NewHS256Validator("s3cret")
	token, err := v.Sign("user-1", "customer", -time.Hour)
	require.NoError(t, err)

	_, err = v.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHS256Validator_RejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, TokenClaims{UserID: "user-1"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = NewHS256Validator("s3cret").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHS256Validator_MissingUserID(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{Role: "admin"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = NewHS256Validator("s3cret").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
