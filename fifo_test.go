package flipdot

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFIFOOrder(t *testing.T) {
	q := NewFIFO(4)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := q.Push(ctx, PixelUpdate{X: i, On: i%2 == 0}); err != nil {
			t.Fatal(err)
		}
	}
	if v := q.Len(); v != 4 {
		t.Fatalf("expected 4 queued updates, got %d", v)
	}
	for i := 0; i < 4; i++ {
		u, ok := q.Pop(time.Millisecond)
		if !ok {
			t.Fatalf("expected update %d", i)
		}
		if u.X != i || u.On != (i%2 == 0) {
			t.Errorf("expected update %d, got %s", i, u)
		}
	}
	if _, ok := q.Pop(time.Millisecond); ok {
		t.Error("expected empty queue")
	}
}

func TestFIFOPushBlocks(t *testing.T) {
	q := NewFIFO(1)
	if err := q.Push(context.Background(), PixelUpdate{X: 1}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Push(ctx, PixelUpdate{X: 2}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected push on a full queue to wait for the context, got %v", err)
	}

	done := make(chan error)
	go func() {
		done <- q.Push(context.Background(), PixelUpdate{X: 3})
	}()
	if u, ok := q.Pop(time.Second); !ok || u.X != 1 {
		t.Fatalf("expected update 1, got %s", u)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if u, ok := q.Pop(time.Second); !ok || u.X != 3 {
		t.Fatalf("expected update 3, got %s", u)
	}
}
