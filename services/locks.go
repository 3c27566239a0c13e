package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Locker hands out short-lived named locks shared by every instance.
type Locker interface {
	NewLock(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string, value string) error
}

type lockOptions struct {
	ttl        time.Duration
	maxRetries int
	retryDelay time.Duration
}

var defaultLockOptions = lockOptions{
	ttl:        10 * time.Second,
	maxRetries: 3,
	retryDelay: 500 * time.Millisecond,
}

// withLock runs fn while holding key. When the lock stays taken after the
// retries ErrBusy is returned and fn never runs.
func withLock(ctx context.Context, locker Locker, key string, opts lockOptions, fn func() error) error {
	lockValue := uuid.New().String()

	var locked bool
	var err error
	for i := 0; i < opts.maxRetries; i++ {
		locked, err = locker.NewLock(ctx, key, lockValue, opts.ttl)
		if err == nil && locked {
			break
		}
		if i < opts.maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.retryDelay):
			}
		}
	}
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s is locked", ErrBusy, key)
	}

	defer func() {
		if err := locker.ReleaseLock(context.WithoutCancel(ctx), key, lockValue); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to release lock")
		}
	}()

	return fn()
}
