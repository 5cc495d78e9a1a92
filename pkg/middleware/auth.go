package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"parkly/pkg/logger"
)

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authentication validates the bearer token and stashes the caller's
// identity in the request context. Handlers read it back with
// AuthenticatedUser; they never trust ids in request bodies.
func Authentication(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractBearerToken(r)
			if err != nil {
				rejectUnauthorized(w, log, r, err.Error())
				return
			}

			claims := &AccessClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				if errors.Is(err, jwt.ErrTokenExpired) {
					rejectUnauthorized(w, log, r, "Token expired")
					return
				}
				rejectUnauthorized(w, log, r, "Invalid or malformed token")
				return
			}

			if claims.Subject == "" {
				rejectUnauthorized(w, log, r, "Token missing subject")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("Authorization header required")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
		return "", errors.New("Invalid authorization header format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("Token is empty")
	}
	return token, nil
}

// AuthenticatedUser returns the user id placed in the context by
// Authentication, or empty when the request was not authenticated.
func AuthenticatedUser(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func AuthenticatedRole(ctx context.Context) string {
	if v := ctx.Value(UserRoleKey); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Unauthorized request",
		"request_id", requestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"reason", reason,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + reason + `"}`))
}
