package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"advportal/config"
)

// Claims are the portal claims carried by tokens the hosted identity service
// issues. The portal only verifies them; it never manages sessions itself.
type Claims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// GeneratePortalToken signs a short-lived HS256 token with the shared
// secret. Used for local development and test fixtures; production tokens
// come from the identity service.
func GeneratePortalToken(userID, tenantID string) (string, error) {
	claims := &Claims{
		UserID:   userID,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// ParsePortalToken validates an HS256 token against the shared secret.
func ParsePortalToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TenantID == "" {
		return nil, errors.New("token missing tenant claim")
	}
	return claims, nil
}
