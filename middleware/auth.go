package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"homefolio/pkg/logger"
)

type contextKey string

const UserIDKey contextKey = "userID"

// CallerID returns the authenticated user id, or "" for anonymous callers.
func CallerID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// OptionalAuth identifies the caller from a Bearer JWT when one is sent.
// Report endpoints are authorized by share token, so a missing or invalid
// JWT only means the caller is rate limited by address instead of by user.
func OptionalAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if secret == "" || tokenString == "" || tokenString == authHeader {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := parseUserID(tokenString, secret)
			if err != nil {
				logger.FromContext(r.Context()).Infof("Ignoring invalid bearer token: %v", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseUserID(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid or expired token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("could not parse token claims")
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("sub claim is missing or invalid")
	}
	return userID, nil
}
