package redisclient

import (
	"context"
	"sync"

	"cloud.google.com/go/civil"
)

type localSlotLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalSlotLocker guards slots within a single process. It fails fast like
// the Redis locker instead of waiting for the holder.
func NewLocalSlotLocker() Locker {
	return &localSlotLocker{held: make(map[string]bool)}
}

func (l *localSlotLocker) WithSlotLock(ctx context.Context, date civil.Date, timeOfDay int, fn func(ctx context.Context) error) error {
	key := SlotLockKey(date, timeOfDay)

	l.mu.Lock()
	if l.held[key] {
		l.mu.Unlock()
		return ErrLockNotAcquired
	}
	l.held[key] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()

	return fn(ctx)
}
