package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/entropy80/investment-app-sub002/src/logger"
	"github.com/entropy80/investment-app-sub002/src/security"
	"github.com/entropy80/investment-app-sub002/src/utils"
)

type contextKey string

const userIDContextKey contextKey = "userID"

// AuthMiddleware resolves the bearer token to a user id via the external
// authentication system and stores it on the request context.
func AuthMiddleware(validator security.TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				utils.SendJSONError(w, "Missing or malformed Authorization header", http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			subject, err := validator.ValidateToken(token)
			if err != nil {
				logger.L.Warn("token validation failed", "error", err)
				utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			userID, err := strconv.ParseInt(subject, 10, 64)
			if err != nil {
				logger.L.Warn("token subject is not a numeric user id", "subject", subject)
				utils.SendJSONError(w, "Invalid token subject", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the authenticated user id placed on the
// context by AuthMiddleware.
func GetUserIDFromContext(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value(userIDContextKey).(int64)
	return userID, ok
}
