package repotest

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Blacklist is an in-memory revocation list.
type Blacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewBlacklist() *Blacklist {
	return &Blacklist{revoked: map[string]time.Time{}}
}

func (b *Blacklist) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	if time.Until(expiresAt) <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[jti] = expiresAt
	return nil
}

func (b *Blacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	expiresAt, ok := b.revoked[jti]
	return ok && time.Now().Before(expiresAt), nil
}

// Len returns the number of revoked ids.
func (b *Blacklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.revoked)
}

// Locker is an in-memory lock table.
type Locker struct {
	mu    sync.Mutex
	held  map[string]string
	Calls int
}

func NewLocker() *Locker {
	return &Locker{held: map[string]string{}}
}

func (l *Locker) NewLock(_ context.Context, key string, value string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls++
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = value
	return true, nil
}

func (l *Locker) ReleaseLock(_ context.Context, key string, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != value {
		return errors.New("lock release failed: not the lock owner")
	}
	delete(l.held, key)
	return nil
}

// Hold takes key on behalf of another owner.
func (l *Locker) Hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = "someone-else"
}

// Held reports whether key is currently locked.
func (l *Locker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}
