package locks

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryAcquireRelease(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	release, err := m.Acquire(ctx, 7)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	release()

	// The lock is free again.
	release, err = m.Acquire(ctx, 7)
	if err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	release()
}

func TestMemoryLocksAreIndependentPerPlayer(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	r1, err := m.Acquire(ctx, 7)
	if err != nil {
		t.Fatalf("acquire 7: %v", err)
	}
	defer r1()

	// Holding 7 must not block 8.
	r2, err := m.Acquire(ctx, 8)
	if err != nil {
		t.Fatalf("acquire 8 while 7 held: %v", err)
	}
	r2()
}

func TestMemoryContenderWaitsForRelease(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	release, err := m.Acquire(ctx, 7)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	got := make(chan error, 1)
	go func() {
		r, err := m.Acquire(ctx, 7)
		if err == nil {
			r()
		}
		got <- err
	}()

	// Give the contender time to block, then release.
	time.Sleep(20 * time.Millisecond)
	release()

	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("contender should acquire after release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("contender never acquired the released lock")
	}
}

func TestMemoryAcquireHonorsContextCancel(t *testing.T) {
	m := NewMemory()

	release, err := m.Acquire(context.Background(), 7)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan error, 1)
	go func() {
		_, err := m.Acquire(ctx, 7)
		got <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-got:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("cancelled acquire never returned")
	}
}
