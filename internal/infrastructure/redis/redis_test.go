package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
)

// These tests need a running Redis; set REUSEHUB_TEST_REDIS_ADDR to enable them.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REUSEHUB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("REUSEHUB_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestLocker_ExclusiveAcrossOwners(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	name := "test-" + uuid.NewString()

	a := NewLocker(client, "replica-a")
	b := NewLocker(client, "replica-b")

	lock, err := a.TryAcquire(ctx, name, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, lock)

	other, err := b.TryAcquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, other, "second owner must not get the lock")

	require.NoError(t, lock.Extend(ctx, time.Minute))
	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Release(ctx), domainErrors.ErrLockNotHeld)

	other, err = b.TryAcquire(ctx, name, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, other)
	require.NoError(t, other.Release(ctx))
}

func TestLocker_Do(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	name := "test-" + uuid.NewString()
	l := NewLocker(client, "replica-a")

	ran, err := l.Do(ctx, name, time.Minute, func(ctx context.Context) error {
		inner, err := NewLocker(client, "replica-b").Do(ctx, name, time.Minute, func(context.Context) error {
			t.Fatal("must not run while the lock is held")
			return nil
		})
		assert.False(t, inner)
		return err
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestIdempotencyStore_RoundTrip(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	store := NewIdempotencyStore(client, "test", time.Minute)
	key := uuid.NewString()

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Set(ctx, key, &IdempotencyEntry{Status: 201, Body: []byte(`{"id":"tx-1"}`)}))
	require.NoError(t, store.Set(ctx, key, &IdempotencyEntry{Status: 500}), "first response wins")

	got, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.Status)
	assert.JSONEq(t, `{"id":"tx-1"}`, string(got.Body))
}
