package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is a private type so our context values can't collide with
// other packages'.
type contextKey string

const sessionIDKey contextKey = "sessionID"

// SessionIDFromContext returns the session ID set by RequireAuth.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}

// ContextWithSessionID returns a child context carrying the session ID.
// Exported for handler tests that bypass the middleware.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// RequireAuth validates the bearer session token and stores the session ID
// in the request context. Requests without a valid token get 401 before the
// handler runs.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				http.Error(w, `{"error":"unauthorized","message":"missing session token"}`,
					http.StatusUnauthorized)
				return
			}

			sessionID, err := tokens.Validate(tokenStr)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"invalid session token"}`,
					http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSessionID(r.Context(), sessionID)))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
