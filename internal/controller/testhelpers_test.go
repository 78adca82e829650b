package controller

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	infraRedis "github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/redis"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memoryIdempotency struct {
	mu      sync.Mutex
	entries map[string]*infraRedis.IdempotencyEntry
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (*infraRedis.IdempotencyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key], nil
}

func (m *memoryIdempotency) Set(_ context.Context, key string, e *infraRedis.IdempotencyEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]*infraRedis.IdempotencyEntry)
	}
	m.entries[key] = e
	return nil
}

func testDeps() RouterDeps {
	return RouterDeps{
		Idempotency:    &memoryIdempotency{},
		JWTSecret:      testSecret,
		MetricsHandler: http.NotFoundHandler(),
	}
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

// do sends a request through h. userID "" sends no Authorization header.
func do(t *testing.T, h http.Handler, method, path, userID, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", bearer(t, userID))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
