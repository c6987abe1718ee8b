// Package auth provides the request-time guard for protected routes. It
// extracts the bearer credential from the Authorization header, verifies it
// through the token service and injects the resulting claims into the request
// context as the authenticated identity.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/shrtnr/internal/token"
)

type tokenVerifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// ClaimsKey is the context key under which the authenticated claims are stored.
const ClaimsKey ContextKey = "authClaims"

type rejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// Guard authenticates incoming requests. Malformed input, bad signatures and
// expired tokens all produce the same rejection; the cause is only logged.
type Guard struct {
	tokens tokenVerifier
	reject rejectFunc
}

// New creates a Guard. reject is called for every authentication failure and
// owns the error response.
func New(tokens tokenVerifier, reject rejectFunc) *Guard {
	return &Guard{
		tokens: tokens,
		reject: reject,
	}
}

// RequireAuth is the middleware protecting identity-bearing routes.
func (g *Guard) RequireAuth(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString := bearerToken(request)
		if tokenString == "" {
			g.reject(response, request, token.ErrInvalidToken)
			return
		}

		claims, err := g.tokens.Verify(tokenString)
		if err != nil {
			g.reject(response, request, err)
			return
		}

		ctx := context.WithValue(request.Context(), ClaimsKey, claims)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// ClaimsFromContext returns the authenticated claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*token.Claims)
	return claims, ok
}

// bearerToken reads the Authorization header, accepting both the
// "Bearer <token>" form and a bare token.
func bearerToken(request *http.Request) string {
	header := request.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return header
}
