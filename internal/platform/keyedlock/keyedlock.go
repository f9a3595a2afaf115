package keyedlock

import (
	"context"
	"slices"
	"sync"
)

// Locker hands out one mutual-exclusion scope per key. Entries are dropped once nobody holds or waits on them.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock acquires every key in sorted order so callers taking overlapping sets cannot deadlock.
// The returned func releases all of them.
func (l *Locker) Lock(ctx context.Context, keys ...string) (func(), error) {
	ordered := normalizeKeys(keys)
	acquired := make([]string, 0, len(ordered))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			l.unlock(acquired[i])
		}
	}

	for _, key := range ordered {
		if err := l.lock(ctx, key); err != nil {
			release()
			return nil, err
		}
		acquired = append(acquired, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *Locker) lock(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.release(key, e)
		return ctx.Err()
	}
}

func (l *Locker) unlock(key string) {
	l.mu.Lock()
	e, ok := l.locks[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	<-e.sem
	l.release(key, e)
}

func (l *Locker) release(key string, e *entry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// Len reports how many keys are currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		out = append(out, key)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
