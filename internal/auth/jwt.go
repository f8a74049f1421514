package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const RoleConsole = "console"

type consoleClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secretKey []byte
	maxAge    time.Duration
}

func NewJWTManager(secretKey []byte, maxAge time.Duration) *JWTManager {
	return &JWTManager{secretKey: secretKey, maxAge: maxAge}
}

func (m *JWTManager) Generate(now time.Time) (string, error) {
	claims := consoleClaims{
		Role: RoleConsole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

func (m *JWTManager) Verify(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &consoleClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})
	if err != nil {
		return ErrInvalidToken
	}
	if claims, ok := token.Claims.(*consoleClaims); ok && token.Valid && claims.Role == RoleConsole {
		return nil
	}
	return ErrInvalidToken
}
