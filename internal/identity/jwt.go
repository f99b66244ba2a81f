package identity

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	dErrors "keeply/pkg/domain-errors"

	"keeply/internal/platform/middleware"
)

// accessTokenClaims are the claims carried by identity-service access
// tokens. The subject is the account id.
type accessTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 access tokens issued by the identity
// service. The shared secret is the identity project's JWT secret.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &accessTokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expirado")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token inválido")
	}

	claims, ok := parsed.Claims.(*accessTokenClaims)
	if !ok || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token inválido")
	}
	return &middleware.JWTClaims{UserID: claims.Subject, Email: claims.Email}, nil
}
