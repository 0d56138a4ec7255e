package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"fintrack/internal/log"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID extracts the authenticated user from a request context.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// WithUserID is used by tests to fabricate an authenticated context.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// Middleware rejects requests without a valid Bearer access token and
// stores the user id in the request context.
func Middleware(service *Service, logger *log.Logger) func(http.Handler) http.Handler {
	authLogger := logger.WithComponent(log.ComponentAuth)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			userID, err := service.Authenticate(token)
			if err != nil {
				authLogger.WarnContext(r.Context(), "Rejected invalid access token",
					log.FieldPath, r.URL.Path,
					log.FieldError, err)
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
