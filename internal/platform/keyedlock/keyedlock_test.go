package keyedlock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLocker_SerializesSameKey(t *testing.T) {
	t.Parallel()

	locker := New()
	counter := 0
	const workers = 64

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "venue:a")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			current := counter
			time.Sleep(time.Microsecond)
			counter = current + 1
			unlock()
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("lost updates: counter=%d want %d", counter, workers)
	}
	if got := locker.Len(); got != 0 {
		t.Fatalf("expected no retained entries, got %d", got)
	}
}

func TestLocker_OverlappingSetsDoNotDeadlock(t *testing.T) {
	t.Parallel()

	locker := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	for _, keys := range [][]string{{"a", "b"}, {"b", "a"}} {
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				unlock, err := locker.Lock(ctx, keys...)
				if err != nil {
					t.Errorf("lock %v: %v", keys, err)
					return
				}
				unlock()
			}
		}()
	}
	wg.Wait()
}

func TestLocker_ContextCancelWhileWaiting(t *testing.T) {
	t.Parallel()

	locker := New()
	unlock, err := locker.Lock(context.Background(), "challenge:1")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "challenge:1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	unlock()
	if got := locker.Len(); got != 0 {
		t.Fatalf("expected entries to be dropped, got %d", got)
	}
}
