package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Only the owner may release or extend a lock.
var (
	releaseLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	extendLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// Locker hands out owner-tagged SETNX locks. The expiry reconciler uses it so
// that only one replica sweeps at a time.
type Locker struct {
	client redis.Cmdable
	owner  string
}

// NewLocker creates a Locker. owner identifies this process in the lock value;
// a random suffix keeps two processes with the same instance id apart.
func NewLocker(client redis.Cmdable, owner string) *Locker {
	return &Locker{client: client, owner: owner + ":" + uuid.NewString()}
}

// Lock is a held lock. Release it when the guarded work is done.
type Lock struct {
	client redis.Cmdable
	key    string
	value  string
}

// TryAcquire takes the lock without waiting. It returns nil, nil when the
// lock is held elsewhere.
func (l *Locker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	key := fmt.Sprintf("lock:%s", name)
	ok, err := l.client.SetNX(ctx, key, l.owner, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrLockAcquisitionFailed, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lock{client: l.client, key: key, value: l.owner}, nil
}

// Extend pushes the lock expiry to ttl from now.
func (k *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	res, err := extendLockScript.Run(ctx, k.client, []string{k.key}, k.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to extend lock: %w", err)
	}
	if res == 0 {
		return domainErrors.ErrLockNotHeld
	}
	return nil
}

// Release deletes the lock if this owner still holds it.
func (k *Lock) Release(ctx context.Context) error {
	res, err := releaseLockScript.Run(ctx, k.client, []string{k.key}, k.value).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if res == 0 {
		return domainErrors.ErrLockNotHeld
	}
	return nil
}

// Do runs fn while holding the named lock. It returns false without running
// fn when another owner holds the lock. The lock is extended every ttl/3
// while fn runs; if an extension fails fn's context is cancelled and Do
// returns ErrLockNotHeld.
func (l *Locker) Do(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error) {
	lock, err := l.TryAcquire(ctx, name, ttl)
	if err != nil {
		return false, err
	}
	if lock == nil {
		return false, nil
	}
	defer func() {
		// Release on a fresh context: ctx may already be cancelled on shutdown.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}()
	return true, keepAlive(ctx, lock, ttl, fn)
}

type extender interface {
	Extend(ctx context.Context, ttl time.Duration) error
}

func keepAlive(ctx context.Context, lock extender, ttl time.Duration, fn func(ctx context.Context) error) error {
	interval := ttl / 3
	if interval <= 0 {
		return fn(ctx)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := lock.Extend(runCtx, ttl); err != nil {
					cancel(fmt.Errorf("%w: %v", domainErrors.ErrLockNotHeld, err))
					return
				}
			}
		}
	}()

	err := fn(runCtx)
	close(done)
	wg.Wait()

	if ctx.Err() == nil {
		if cause := context.Cause(runCtx); cause != nil {
			return cause
		}
	}
	return err
}
