package security

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator is the boundary to the external authentication system.
// This engine never issues or refreshes tokens; it only needs to resolve a
// bearer token to a user id.
type TokenValidator interface {
	ValidateToken(tokenString string) (string, error)
}

type AuthService struct {
	JWTSecret string
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{
		JWTSecret: secret,
	}
}

// ValidateToken verifies an HS256 token and returns its subject (the user id).
func (a *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.JWTSecret), nil
	})

	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		// Ensure 'sub' claim exists and is a string
		sub, ok := claims["sub"].(string)
		if !ok {
			return "", errors.New("invalid token: 'sub' claim missing or not a string")
		}
		return sub, nil
	}

	return "", errors.New("invalid token")
}
