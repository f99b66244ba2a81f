package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "keeply/pkg/domain-errors"
)

const testSecret = "super-secret-jwt-key"

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestValidateToken_AcceptsSignedToken(t *testing.T) {
	token := signToken(t, testSecret, accessTokenClaims{
		Email: "ana@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acc-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := NewTokenVerifier(testSecret).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	token := signToken(t, "other-secret", accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "acc-1"},
	})

	_, err := NewTokenVerifier(testSecret).ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_RejectsExpiredToken(t *testing.T) {
	token := signToken(t, testSecret, accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acc-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := NewTokenVerifier(testSecret).ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_RejectsMissingSubject(t *testing.T) {
	token := signToken(t, testSecret, accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := NewTokenVerifier(testSecret).ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_RejectsUnsignedAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "acc-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenVerifier(testSecret).ValidateToken(token)
	require.Error(t, err)
}
