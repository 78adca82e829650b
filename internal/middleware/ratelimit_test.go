package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
}

func hit(h http.Handler, r *http.Request) int {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w.Code
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestRateLimit_PerUser(t *testing.T) {
	h := RateLimit(2)(okHandler())
	buyer := func() *http.Request {
		return asUser(httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil), "buyer-1")
	}

	assert.Equal(t, http.StatusOK, hit(h, buyer()))
	assert.Equal(t, http.StatusOK, hit(h, buyer()))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, buyer())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded","code":"rate_limit"}`, w.Body.String())

	// Same address, different user: its own budget.
	seller := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil), "seller-1")
	assert.Equal(t, http.StatusOK, hit(h, seller))
}

func TestRateLimit_AnonymousByIP(t *testing.T) {
	h := RateLimit(1)(okHandler())
	from := func(addr string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/internal/items/item-1", nil)
		r.RemoteAddr = addr
		return r
	}

	assert.Equal(t, http.StatusOK, hit(h, from("10.0.0.1:5000")))
	assert.Equal(t, http.StatusTooManyRequests, hit(h, from("10.0.0.1:5001")))
	assert.Equal(t, http.StatusOK, hit(h, from("10.0.0.2:5000")))
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders()(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/transactions/1", nil))

	for k, v := range apiHeaders {
		assert.Equal(t, v, w.Header().Get(k), k)
	}
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "no HSTS over plain HTTP")
}

func TestSecurityHeaders_HSTSBehindTLSProxy(t *testing.T) {
	h := SecurityHeaders()(okHandler())
	r := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/1", nil)
	r.Header.Set("X-Forwarded-Proto", "https")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
}
