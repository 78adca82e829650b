package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, method jwt.SigningMethod, key any, userID string, expires time.Time) string {
	t.Helper()
	return sign(t, method, key, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestRequireAuth(t *testing.T) {
	var gotUser string
	h := RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "buyer-1", time.Now().Add(time.Hour))
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "buyer-1", time.Now().Add(-time.Hour))
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), "buyer-1", time.Now().Add(time.Hour))
	noUser := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "", time.Now().Add(time.Hour))
	otherAlg := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), "buyer-1", time.Now().Add(time.Hour))
	noExpiry := sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{UserID: "buyer-1"})
	subjectOnly := sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "buyer-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
		{"subject claim only", "Bearer " + subjectOnly, http.StatusOK, ""},
		{"no expiry", "Bearer " + noExpiry, http.StatusUnauthorized, "auth_invalid"},
		{"HS512 token", "Bearer " + otherAlg, http.StatusUnauthorized, "auth_invalid"},
		{"missing header", "", http.StatusUnauthorized, "auth_required"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "auth_invalid_scheme"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "auth_invalid"},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized, "auth_invalid"},
		{"no subject", "Bearer " + noUser, http.StatusUnauthorized, "auth_invalid"},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized, "auth_invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Contains(t, w.Body.String(), tt.code)
				assert.Empty(t, gotUser)
			} else {
				assert.Equal(t, "buyer-1", gotUser)
			}
		})
	}
}

func TestGetUserID_Missing(t *testing.T) {
	_, ok := GetUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)

	_, ok = GetUserID(context.WithValue(context.Background(), UserIDKey, ""))
	assert.False(t, ok, "an empty user id is not an identity")
}

func TestRequireAuth_ErrorBody(t *testing.T) {
	h := RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil))

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"missing authorization header","code":"auth_required"}`, w.Body.String())
}
