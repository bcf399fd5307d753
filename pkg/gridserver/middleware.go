package gridserver

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserTokenKey holds the bearer token of an authenticated request
	UserTokenKey contextKey = "user_token"
)

// TokenValidator reports whether a bearer token is accepted.
type TokenValidator func(token string) bool

// StaticTokens accepts exactly the given tokens. Empty tokens are ignored.
func StaticTokens(tokens ...string) TokenValidator {
	allowed := make([][]byte, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			allowed = append(allowed, []byte(t))
		}
	}
	return func(token string) bool {
		for _, a := range allowed {
			if subtle.ConstantTimeCompare(a, []byte(token)) == 1 {
				return true
			}
		}
		return false
	}
}

// AuthMiddleware rejects requests without an accepted "Authorization: Bearer" token
// and stores the token in the request context.
func AuthMiddleware(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok || validate == nil || !validate(token) {
				http.Error(w, "Authentication failed", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// GetUserToken extracts the bearer token from context
func GetUserToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(UserTokenKey).(string)
	return token, ok
}
