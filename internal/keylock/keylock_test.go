package keylock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLocalSerializesSameKey(t *testing.T) {
	t.Parallel()

	locker := NewLocal()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
		counter int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(ctx, "user-1")
			if err != nil {
				t.Errorf("Lock failed: %v", err)
				return
			}
			defer release()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			current := counter
			time.Sleep(time.Millisecond)
			counter = current + 1

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxSeen)
	}
	if counter != 20 {
		t.Fatalf("expected 20 serialized increments, got %d", counter)
	}
	if n := locker.size(); n != 0 {
		t.Fatalf("expected released keys to be dropped, %d remain", n)
	}
}

func TestLocalIndependentKeys(t *testing.T) {
	t.Parallel()

	locker := NewLocal()
	ctx := context.Background()

	releaseA, err := locker.Lock(ctx, "user-a")
	if err != nil {
		t.Fatalf("Lock user-a failed: %v", err)
	}
	defer releaseA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	releaseB, err := locker.Lock(ctx, "user-b")
	if err != nil {
		t.Fatalf("expected user-b to be free while user-a is held: %v", err)
	}
	releaseB()
}

func TestLocalHonoursContext(t *testing.T) {
	t.Parallel()

	locker := NewLocal()
	release, err := locker.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "user-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while held, got %v", err)
	}

	release()
	release()

	again, err := locker.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected key to be free after release: %v", err)
	}
	again()
	if n := locker.size(); n != 0 {
		t.Fatalf("expected no tracked keys, got %d", n)
	}
}

func TestRedisRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := NewRedis(nil).Lock(context.Background(), "user-1"); err == nil {
		t.Fatalf("expected error without client")
	}
}
