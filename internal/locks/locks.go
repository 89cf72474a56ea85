// Package locks provides in-process keyed mutual exclusion. Contact
// operations lock per contact so concurrent commands cannot interleave
// their read-modify-write cycles.
package locks

import (
	"context"
	"sync"

	"caseline/internal/contacts"
)

// KeyedMutex hands out one lock per key. Locks are created on demand and
// forgotten once no holder or waiter remains, so the key space can grow
// without bounding memory.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock carries exactly one token, either in the channel or held by the
// current owner. refs counts holders plus waiters.
type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Acquire blocks until the key's lock is free or ctx is done. On success
// the returned release function must be called to free the lock; calling
// it more than once is harmless.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		l.ch <- struct{}{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case <-l.ch:
		var once sync.Once
		release := func() {
			once.Do(func() {
				l.ch <- struct{}{}
				m.drop(key, l)
			})
		}
		return release, nil
	case <-ctx.Done():
		m.drop(key, l)
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) drop(key string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

var _ contacts.Locker = (*KeyedMutex)(nil)
