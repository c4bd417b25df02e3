package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Auth carries the caller's identity out of the middleware. It is plain
// data, safe to capture by value into a background job; nothing here keeps
// the request alive.
type Auth struct {
	// Admin means is_administrator was set and the elevated credential
	// should be used instead of the caller's token.
	Admin bool

	// Token is the raw bearer token; ClaimsJSON its decoded claims,
	// forwarded to the store for row-level permission checks.
	Token      string
	ClaimsJSON string
}

type authCtxKey struct{}

// AuthFrom extracts the Auth placed in the context by AuthMiddleware.
func AuthFrom(ctx context.Context) (Auth, bool) {
	a, ok := ctx.Value(authCtxKey{}).(Auth)
	return a, ok
}

type authProbe struct {
	IsAdministrator bool `json:"is_administrator"`
}

// AuthMiddleware authenticates a request. An is_administrator flag in the
// body selects the elevated credential; otherwise a bearer token is
// required and its claims are forwarded downstream. The token is only
// checked for presence and shape here: enforcement happens in the
// database's row-level policies.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			unauthorized(w, "unreadable request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var probe authProbe
		_ = json.Unmarshal(body, &probe)

		if probe.IsAdministrator {
			ctx := context.WithValue(r.Context(), authCtxKey{}, Auth{Admin: true})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(w, "Unauthorized")
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		claims := jwt.MapClaims{}
		// Claims are decoded without signature verification: the store
		// forwards them and the database enforces permissions.
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			unauthorized(w, "invalid token")
			return
		}
		claimsJSON, err := json.Marshal(claims)
		if err != nil {
			unauthorized(w, "invalid token claims")
			return
		}

		auth := Auth{Token: token, ClaimsJSON: string(claimsJSON)}
		ctx := context.WithValue(r.Context(), authCtxKey{}, auth)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
