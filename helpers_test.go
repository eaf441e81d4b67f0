package flipdot

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time

	// onSleep runs at the start of every Sleep
	onSleep func(time.Duration)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	if c.onSleep != nil {
		c.onSleep(d)
	}
	c.Advance(d)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// event is one recorded line or bus operation.
type event struct {
	name string
	data string
}

// recorder collects operations from several fake devices in order.
type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) add(name, data string) {
	r.mu.Lock()
	r.events = append(r.events, event{name, data})
	r.mu.Unlock()
}

func (r *recorder) Events() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func (r *recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type recordLine struct {
	name string
	rec  *recorder
	mu   sync.Mutex
	l    gpio.Level
	err  error
}

func (l *recordLine) Out(level gpio.Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.l = level
	if l.rec != nil {
		l.rec.add(l.name, level.String())
	}
	return nil
}

func (l *recordLine) Level() gpio.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.l
}

type fakeBus struct {
	rec *recorder
	mu  sync.Mutex
	tx  [][3]byte
	err error
}

func (b *fakeBus) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	var data [3]byte
	copy(data[:], w)
	b.tx = append(b.tx, data)
	if b.rec != nil {
		b.rec.add("spi", fmt.Sprintf("% x", w))
	}
	return nil
}

func (b *fakeBus) Sent() [][3]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][3]byte(nil), b.tx...)
}

type fakePort struct {
	mu     sync.Mutex
	writes [][]byte
	limit  int // accept at most limit bytes per write, 0 for all
	err    error
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	n := len(b)
	if p.limit > 0 && n > p.limit {
		n = p.limit
	}
	p.writes = append(p.writes, append([]byte(nil), b[:n]...))
	return n, nil
}

func (p *fakePort) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.writes...)
}

var errFake = errors.New("fake failure")

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
