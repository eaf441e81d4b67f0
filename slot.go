package flipdot

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultLockTimeout is how long a producer waits for the command slot.
const DefaultLockTimeout = 5 * time.Millisecond

// Slot holds at most one pending command.
//
// A producer that can't lock the slot within the lock timeout gets ErrBusy. A
// newer command replaces a pending one that the consumer hasn't taken yet. The
// consumer swaps the pending buffer out under the lock, so the command being
// transmitted is never visible to producers.
type Slot struct {
	lock    *semaphore.Weighted
	timeout time.Duration
	pending *Command
	sending *Command
	ready   bool
	wake    chan struct{}
}

// NewSlot returns an empty slot for commands of up to size bytes.
func NewSlot(size int, timeout time.Duration) *Slot {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &Slot{
		lock:    semaphore.NewWeighted(1),
		timeout: timeout,
		pending: NewCommand(size),
		sending: NewCommand(size),
		wake:    make(chan struct{}, 1),
	}
}

func (s *Slot) acquire(ctx context.Context, timeout time.Duration) error {
	if s.lock.TryAcquire(1) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.lock.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrBusy
		}
		return err
	}
	return nil
}

// Put stores payload as the pending command.
func (s *Slot) Put(ctx context.Context, payload []byte) error {
	if err := s.acquire(ctx, s.timeout); err != nil {
		return err
	}
	err := s.pending.copyFrom(payload)
	if err == nil {
		s.ready = true
	}
	s.lock.Release(1)
	if err != nil {
		return err
	}

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Take waits up to wait for a pending command and hands it to the caller.
// The returned command is owned by the caller until the next call to Take.
func (s *Slot) Take(ctx context.Context, wait time.Duration) (*Command, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-s.wake:
	case <-timer.C:
		// a Put may have lost its wake-up to an earlier one; check anyway
	case <-ctx.Done():
		return nil, false
	}

	if err := s.lock.Acquire(ctx, 1); err != nil {
		return nil, false
	}
	defer s.lock.Release(1)

	if !s.ready {
		return nil, false
	}
	s.pending, s.sending = s.sending, s.pending
	s.pending.Reset()
	s.ready = false
	return s.sending, true
}
