package flipdot

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/flipdot/conn"
)

type testModule struct {
	*Module
	port  *fakePort
	clock *fakeClock
}

func newTestModule(t *testing.T, config ModuleConfig) *testModule {
	t.Helper()
	tm := &testModule{
		port:  new(fakePort),
		clock: newFakeClock(),
	}
	config.Clock = tm.clock

	var err error
	if tm.Module, err = NewModule(tm.port, &config); err != nil {
		t.Fatal(err)
	}
	return tm
}

func (tm *testModule) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tm.Run(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected run to stop with context.Canceled, got %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
}

func TestModuleSendText(t *testing.T) {
	m := newTestModule(t, ModuleConfig{})
	m.run(t)

	if err := m.SendText(context.Background(), "Hi", 0, 0); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "frame", func() bool { return m.Status().Sent == 1 })

	want := Frame(0x06, []byte{
		0xa2, 0xd0, 0x70, 0xd1, 0x13,
		0xd2, 0x00, 0xd3, 0x0f, 0xd4, 0x73,
		'H', 'i',
	})
	writes := m.port.Writes()
	if len(writes) != 1 || !bytes.Equal(writes[0], want) {
		t.Errorf("expected % x, got % x", want, writes)
	}
	if v := m.Status().Power; v != PowerOn {
		t.Errorf("expected module power on, got %s", v)
	}
}

func TestModuleSendTextBounds(t *testing.T) {
	m := newTestModule(t, ModuleConfig{})
	for _, pt := range [][2]int{{112, 0}, {0, 19}, {-1, 0}} {
		if err := m.SendText(context.Background(), "x", pt[0], pt[1]); !errors.Is(err, ErrBounds) {
			t.Errorf("%v: expected ErrBounds, got %v", pt, err)
		}
	}
}

func TestModuleFillWhite(t *testing.T) {
	m := newTestModule(t, ModuleConfig{Address: 0x01, Width: 10, Height: 5})
	m.run(t)

	if err := m.FillWhite(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "frame", func() bool { return m.Status().Sent == 1 })

	address, payload, err := Unframe(m.port.Writes()[0])
	if err != nil {
		t.Fatal(err)
	}
	if address != 0x01 {
		t.Errorf("expected address 01, got %02x", address)
	}
	want := []byte{0xa2, 0xd0, 0x0a, 0xd1, 0x05, 0xd2, 0x00, 0xd3, 0x0f}
	want = append(want, bytes.Repeat([]byte{0x3f}, 10)...)
	if !bytes.Equal(payload, want) {
		t.Errorf("expected % x, got % x", want, payload)
	}
}

func TestModuleShortWrite(t *testing.T) {
	m := newTestModule(t, ModuleConfig{})
	m.port.limit = 3
	m.run(t)

	if err := m.SubmitCommand(context.Background(), []byte{0x01, 0x02}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "failed frame", func() bool { return m.Status().Failed == 1 })
	if v := len(m.port.Writes()); v != 1 {
		t.Errorf("expected a single attempt, got %d writes", v)
	}
}

func TestModuleWriteError(t *testing.T) {
	m := newTestModule(t, ModuleConfig{})
	m.port.err = errFake
	if err := m.transmit(NewCommand(4)); !errors.Is(err, errFake) {
		t.Errorf("expected write error, got %v", err)
	}
	m.port.err = nil
	m.port.limit = 1
	if err := m.transmit(NewCommand(4)); !errors.Is(err, ErrShortWrite) {
		t.Errorf("expected ErrShortWrite, got %v", err)
	}
}

func TestModuleTxEnable(t *testing.T) {
	rec := new(recorder)
	var (
		enable   = &recordLine{name: "enable", rec: rec}
		txEnable = &recordLine{name: "tx", rec: rec}
		power    = &recordLine{name: "power", rec: rec}
	)
	m := newTestModule(t, ModuleConfig{Enable: []conn.Line{enable}, TxEnable: txEnable, Power: power})
	if enable.Level() != gpio.High {
		t.Error("expected transceiver enabled at start")
	}
	rec.Reset()

	if err := m.transmit(NewCommand(4)); err != nil {
		t.Fatal(err)
	}
	want := []event{
		{"power", "High"},
		{"tx", "High"},
		{"tx", "Low"},
	}
	events := rec.Events()
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], events[i])
		}
	}
}

func TestModuleBusy(t *testing.T) {
	m := newTestModule(t, ModuleConfig{LockTimeout: time.Millisecond})
	if err := m.slot.lock.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer m.slot.lock.Release(1)

	if err := m.SendText(context.Background(), "x", 0, 0); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
}

func TestModuleIdleTimeout(t *testing.T) {
	m := newTestModule(t, ModuleConfig{IdleTimeout: 10 * time.Second})
	m.run(t)

	if err := m.SubmitCommand(context.Background(), []byte{0x01}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "frame", func() bool { return m.Status().Sent == 1 })

	m.clock.Advance(9 * time.Second)
	time.Sleep(30 * time.Millisecond)
	if v := m.Status().Power; v != PowerOn {
		t.Fatalf("expected module power on after 9s, got %s", v)
	}
	m.clock.Advance(time.Second)
	waitFor(t, "power off", func() bool { return m.Status().Power == PowerOff })
}

func TestModuleNoIdleTimeout(t *testing.T) {
	m := newTestModule(t, ModuleConfig{})
	m.run(t)

	if err := m.SubmitCommand(context.Background(), []byte{0x01}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "frame", func() bool { return m.Status().Sent == 1 })

	m.clock.Advance(24 * time.Hour)
	time.Sleep(30 * time.Millisecond)
	if v := m.Status().Power; v != PowerOn {
		t.Errorf("expected module power to stay on, got %s", v)
	}
}
