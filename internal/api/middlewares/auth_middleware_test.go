package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func runAuth(t *testing.T, body, authHeader string) (*httptest.ResponseRecorder, Auth, bool, string) {
	t.Helper()

	var (
		auth     Auth
		authOK   bool
		seenBody string
	)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, authOK = AuthFrom(r.Context())
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seenBody = string(b)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/parse-pdf", strings.NewReader(body))
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	AuthMiddleware(next).ServeHTTP(rec, req)
	return rec, auth, authOK, seenBody
}

func TestAuthMiddlewareAdminFlagBypassesToken(t *testing.T) {
	body := `{"book_id":"b1","is_administrator":true}`
	rec, auth, ok, seenBody := runAuth(t, body, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok)
	assert.True(t, auth.Admin)
	assert.Empty(t, auth.ClaimsJSON)

	// The probe must not consume the body; the handler still reads it.
	assert.Equal(t, body, seenBody)
}

func TestAuthMiddlewareForwardsTokenClaims(t *testing.T) {
	token := signTestToken(t, jwt.MapClaims{"sub": "user-42", "role": "authenticated"})
	rec, auth, ok, _ := runAuth(t, `{"book_id":"b1"}`, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok)
	assert.False(t, auth.Admin)
	assert.Equal(t, token, auth.Token)
	assert.Contains(t, auth.ClaimsJSON, `"sub":"user-42"`)
	assert.Contains(t, auth.ClaimsJSON, `"role":"authenticated"`)
}

func TestAuthMiddlewareMissingTokenIsRejected(t *testing.T) {
	rec, _, _, _ := runAuth(t, `{"book_id":"b1"}`, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized")
}

func TestAuthMiddlewareMalformedTokenIsRejected(t *testing.T) {
	rec, _, _, _ := runAuth(t, `{"book_id":"b1"}`, "Bearer not-a-jwt")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareNonBearerSchemeIsRejected(t *testing.T) {
	rec, _, _, _ := runAuth(t, `{"book_id":"b1"}`, "Basic dXNlcjpwYXNz")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
