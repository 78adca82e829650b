package itemclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return New(config.ItemServiceConfig{
		BaseURL:    url,
		Timeout:    time.Second,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}, nil, zerolog.Nop())
}

func TestGetItem_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/items/item-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"item-1","sellerId":"seller-1","title":"Desk","price":150000,"status":"AVAILABLE"}`))
	}))
	defer srv.Close()

	it, err := newTestClient(srv.URL).GetItem(context.Background(), "item-1")
	require.NoError(t, err)

	assert.Equal(t, "seller-1", it.SellerID)
	assert.Equal(t, int64(150000), it.Price)
	assert.Equal(t, item.StatusAvailable, it.Status)
}

func TestGetItem_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetItem(context.Background(), "missing")

	assert.ErrorIs(t, err, domainErrors.ErrItemNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetItem_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"item-1","sellerId":"s","title":"t","price":1,"status":"RESERVED"}`))
	}))
	defer srv.Close()

	it, err := newTestClient(srv.URL).GetItem(context.Background(), "item-1")
	require.NoError(t, err)

	assert.Equal(t, item.StatusReserved, it.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetItem_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetItem(context.Background(), "item-1")
	assert.ErrorIs(t, err, domainErrors.ErrItemServiceUnavailable)
}

func TestRetryable(t *testing.T) {
	assert.False(t, retryable(domainErrors.ErrItemNotFound))
	assert.False(t, retryable(&statusError{code: http.StatusBadRequest}))
	assert.True(t, retryable(&statusError{code: http.StatusInternalServerError}))
	assert.True(t, retryable(&statusError{code: http.StatusTooManyRequests}))
	assert.True(t, retryable(context.DeadlineExceeded))
}
