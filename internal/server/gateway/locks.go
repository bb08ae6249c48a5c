package gateway

import (
	"context"
	"sync"
)

// Locker serializes read-modify-write work on one asset.
// dbx.AdvisoryLocker satisfies it across processes, KeyedMutex within one.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// KeyedMutex is an in-process Locker. Waiting for a key honours ctx.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*lockSlot)}
}

func (m *KeyedMutex) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	slot := m.acquireSlot(key)
	defer m.releaseSlot(key, slot)

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-slot.ch }()

	return fn(ctx)
}

func (m *KeyedMutex) acquireSlot(key string) *lockSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		m.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (m *KeyedMutex) releaseSlot(key string, slot *lockSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(m.slots, key)
	}
}

func assetLockKey(assetID string) string {
	return "asset:" + assetID
}
