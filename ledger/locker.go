package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Locker provides per-user critical sections around read-modify-write.
// Two writers for the same user would otherwise lose an update and
// double-count or drop XP. Different users never contend.
type Locker interface {
	// Lock blocks until the user's lock is held or ctx is done.
	// The returned function releases the lock and must be called once.
	Lock(ctx context.Context, user UserID) (unlock func(), err error)
}

// KeyedMutex is an in-process Locker. Entries are reference counted and
// removed once no goroutine holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[UserID]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[UserID]*keyLock)}
}

func (m *KeyedMutex) Lock(ctx context.Context, user UserID) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[user]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		m.locks[user] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(user, l)
		return nil, fmt.Errorf("%w for %s: %v", ErrLockTimeout, user, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			m.release(user, l)
		})
	}, nil
}

func (m *KeyedMutex) release(user UserID, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, user)
	}
}

// held reports how many users currently have a lock entry. Used by tests.
func (m *KeyedMutex) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
