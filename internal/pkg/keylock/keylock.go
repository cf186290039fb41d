// Package keylock hands out one mutex per key. Entries are created on first
// use and dropped once nobody holds or waits for them.
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	// sem is a one-slot channel so waiters can give up on ctx cancellation.
	sem  chan struct{}
	refs int
}

type Locker[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

func New[K comparable]() *Locker[K] {
	return &Locker[K]{entries: make(map[K]*entry)}
}

// Lock blocks until the key is free or ctx is done. The returned func
// releases the key and must be called exactly once.
func (l *Locker[K]) Lock(ctx context.Context, key K) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

func (l *Locker[K]) release(key K, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Len returns the number of live entries.
func (l *Locker[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
