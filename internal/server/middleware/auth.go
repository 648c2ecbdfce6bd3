package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tempohq/tempo/internal/auth"
)

type contextKey string

// ContextKeyAuthenticated marks a request that presented a valid token.
const ContextKeyAuthenticated contextKey = "authenticated"

// Auth requires a valid Bearer token on every request it wraps.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := extractBearer(r); tok != "" {
				if _, err := auth.ValidateToken(jwtSecret, tok); err == nil {
					ctx := context.WithValue(r.Context(), ContextKeyAuthenticated, true)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}
	return ""
}

// Authenticated reports whether the request carried a valid token.
func Authenticated(ctx context.Context) bool {
	v, ok := ctx.Value(ContextKeyAuthenticated).(bool)
	return ok && v
}
