package flipdot

import (
	"context"
	"time"
)

// DefaultQueueSize is the number of pixel updates a FIFO holds.
const DefaultQueueSize = 50

// FIFO is a bounded queue of pixel updates.
//
// Push blocks while the queue is full; there is no coalescing, updates are
// consumed in exactly the order they were pushed.
type FIFO struct {
	c chan PixelUpdate
}

func NewFIFO(size int) *FIFO {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &FIFO{c: make(chan PixelUpdate, size)}
}

// Push appends u, waiting for space until ctx is done.
func (q *FIFO) Push(ctx context.Context, u PixelUpdate) error {
	select {
	case q.c <- u:
		return nil
	default:
	}
	select {
	case q.c <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop returns the oldest update, waiting at most timeout for one to arrive.
func (q *FIFO) Pop(timeout time.Duration) (PixelUpdate, bool) {
	select {
	case u := <-q.c:
		return u, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case u := <-q.c:
		return u, true
	case <-timer.C:
		return PixelUpdate{}, false
	}
}

func (q *FIFO) Len() int {
	return len(q.c)
}

func (q *FIFO) Cap() int {
	return cap(q.c)
}
