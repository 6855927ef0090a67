package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const adminContextKey contextKey = "admin"

const tokenIssuer = "face-attendance"

// AdminClaims is the payload of an admin token
type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies admin tokens with HMAC-SHA256
type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenIssuer creates an issuer. It returns nil when key is empty,
// which disables every admin route.
func NewTokenIssuer(key string, ttl time.Duration) *TokenIssuer {
	if key == "" {
		return nil
	}
	return &TokenIssuer{key: []byte(key), ttl: ttl, now: time.Now}
}

// Issue creates a signed token for username
func (ti *TokenIssuer) Issue(username string) (string, time.Time, error) {
	now := ti.now()
	expiresAt := now.Add(ti.ttl)
	claims := AdminClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify parses and validates a token
func (ti *TokenIssuer) Verify(token string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Issuer != tokenIssuer {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// BearerToken extracts the token of an "Authorization: Bearer" header
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// RequireAdmin is middleware that requires a valid admin token
func RequireAdmin(ti *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ti == nil {
				writeJSONError(w, http.StatusServiceUnavailable, "admin access is not configured")
				return
			}
			token := BearerToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			claims, err := ti.Verify(token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), adminContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminFromContext retrieves the admin claims from the request context
func GetAdminFromContext(ctx context.Context) *AdminClaims {
	claims, ok := ctx.Value(adminContextKey).(*AdminClaims)
	if !ok {
		return nil
	}
	return claims
}

// SetAdminInContext adds admin claims to the context.
// This is primarily for testing - use RequireAdmin middleware in production.
func SetAdminInContext(ctx context.Context, claims *AdminClaims) context.Context {
	return context.WithValue(ctx, adminContextKey, claims)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error": %q}`, message)
}
