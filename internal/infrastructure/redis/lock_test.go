package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
)

type extendFunc func(ctx context.Context, ttl time.Duration) error

func (f extendFunc) Extend(ctx context.Context, ttl time.Duration) error { return f(ctx, ttl) }

func TestKeepAlive_ExtendsWhileRunning(t *testing.T) {
	var extends atomic.Int32
	lock := extendFunc(func(_ context.Context, ttl time.Duration) error {
		assert.Equal(t, 30*time.Millisecond, ttl)
		extends.Add(1)
		return nil
	})

	err := keepAlive(context.Background(), lock, 30*time.Millisecond, func(ctx context.Context) error {
		time.Sleep(80 * time.Millisecond)
		return ctx.Err()
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, extends.Load(), int32(2))
}

func TestKeepAlive_LostLockCancelsWork(t *testing.T) {
	lock := extendFunc(func(context.Context, time.Duration) error {
		return errors.New("owner changed")
	})

	var stopped bool
	err := keepAlive(context.Background(), lock, 30*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			stopped = true
			return nil
		case <-time.After(time.Second):
			return nil
		}
	})
	assert.True(t, stopped, "work must stop once the lock is gone")
	assert.ErrorIs(t, err, domainErrors.ErrLockNotHeld)
}

func TestKeepAlive_ReturnsWorkError(t *testing.T) {
	lock := extendFunc(func(context.Context, time.Duration) error { return nil })
	boom := errors.New("boom")

	err := keepAlive(context.Background(), lock, time.Minute, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
