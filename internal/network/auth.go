package network

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"imbridge/pkg/rbac"
)

var ErrMissingToken = errors.New("missing bearer token")

// Client identifies an authenticated push client.
type Client struct {
	ID   string
	Role string
}

// GenerateClientToken creates a token identifying one push client.
func GenerateClientToken(clientID, role, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"client_id": clientID,
		"role":      role,
		"exp":       time.Now().Add(ttl).Unix(),
		"iat":       time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseClientToken validates token and extracts the client identity.
func ParseClientToken(tokenStr, secret string) (Client, error) {
	if tokenStr == "" {
		return Client{}, ErrMissingToken
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Client{}, err
	}

	if !token.Valid {
		return Client{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Client{}, jwt.ErrTokenMalformed
	}

	clientID, ok := claims["client_id"].(string)
	if !ok || clientID == "" {
		return Client{}, jwt.ErrTokenMalformed
	}
	role, _ := claims["role"].(string)

	return Client{ID: clientID, Role: rbac.NormalizeRole(role)}, nil
}

// ExtractToken reads the bearer token from the Authorization header, falling
// back to the access_token query parameter for browser clients.
func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return r.URL.Query().Get("access_token")
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
