package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/antong314/dayly/internal/server/auth"
)

type contextKey string

const userIDKey contextKey = "userID"

// authMiddleware validates the bearer token and stores the caller's user id
// in the request context. Missing or invalid credentials get 401.
func authMiddleware(secretKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeErrorStatus(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			userID, err := auth.GetUserIDFromToken(token, []byte(secretKey))
			if err != nil {
				writeErrorStatus(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userIDFrom returns the authenticated user id set by authMiddleware.
func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
