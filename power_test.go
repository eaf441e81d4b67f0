package flipdot

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func newTestPower(t *testing.T, idle time.Duration) (*PowerSequencer, *gpiotest.Pin, *gpiotest.Pin, *fakeClock) {
	t.Helper()
	var (
		rail      = &gpiotest.Pin{N: "rail", L: gpio.High}
		indicator = &gpiotest.Pin{N: "led", L: gpio.High}
		clock     = newFakeClock()
	)
	p, err := NewPowerSequencer(&PowerConfig{
		Rail:        rail,
		Indicator:   indicator,
		Settle:      5 * time.Millisecond,
		IdleTimeout: idle,
		Clock:       clock,
	})
	if err != nil {
		t.Fatal(err)
	}
	return p, rail, indicator, clock
}

func TestPowerSequencer(t *testing.T) {
	p, rail, indicator, clock := newTestPower(t, 10*time.Second)

	if v := p.State(); v != PowerOff {
		t.Fatalf("expected power off, got %s", v)
	}
	if rail.Read() != gpio.Low {
		t.Fatal("expected rail to be driven low at start")
	}

	start := clock.Now()
	if err := p.Energize(); err != nil {
		t.Fatal(err)
	}
	if v := p.State(); v != PowerOn {
		t.Fatalf("expected power on, got %s", v)
	}
	if v := clock.Now().Sub(start); v != 5*time.Millisecond {
		t.Errorf("expected settle delay of 5ms, waited %s", v)
	}
	if rail.Read() != gpio.High || indicator.Read() != gpio.High {
		t.Error("expected rail and indicator high")
	}

	// already on, no second settle
	start = clock.Now()
	if err := p.Energize(); err != nil {
		t.Fatal(err)
	}
	if v := clock.Now().Sub(start); v != 0 {
		t.Errorf("expected no settle delay, waited %s", v)
	}

	clock.Advance(9 * time.Second)
	if off, err := p.Evaluate(); err != nil || off {
		t.Fatalf("expected power to stay on after 9s, got %t, %v", off, err)
	}

	clock.Advance(time.Second)
	if off, err := p.Evaluate(); err != nil || !off {
		t.Fatalf("expected power off after 10s, got %t, %v", off, err)
	}
	if v := p.State(); v != PowerOff {
		t.Errorf("expected power off, got %s", v)
	}
	if rail.Read() != gpio.Low || indicator.Read() != gpio.Low {
		t.Error("expected rail and indicator low")
	}
}

func TestPowerSequencerTouch(t *testing.T) {
	p, _, _, clock := newTestPower(t, time.Second)
	if err := p.Energize(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		clock.Advance(900 * time.Millisecond)
		p.Touch()
		if off, _ := p.Evaluate(); off {
			t.Fatalf("expected activity to keep power on (round %d)", i)
		}
	}
	if v := p.Snapshot().LastActivity; !v.Equal(clock.Now()) {
		t.Errorf("expected last activity %s, got %s", clock.Now(), v)
	}
}

func TestPowerSequencerNoIdleTimeout(t *testing.T) {
	p, rail, _, clock := newTestPower(t, NoIdleTimeout)
	if err := p.Energize(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(24 * time.Hour)
	if off, _ := p.Evaluate(); off {
		t.Fatal("expected power to stay on without idle timeout")
	}

	if err := p.Deenergize(); err != nil {
		t.Fatal(err)
	}
	if v := p.State(); v != PowerOff || rail.Read() != gpio.Low {
		t.Errorf("expected power off, got %s", v)
	}
}

func TestPowerSequencerEvaluateOff(t *testing.T) {
	p, _, _, clock := newTestPower(t, 0)
	clock.Advance(time.Hour)
	if off, _ := p.Evaluate(); off {
		t.Error("expected evaluate to leave a powered off rail alone")
	}
}

func TestPowerSequencerSettling(t *testing.T) {
	p, rail, _, clock := newTestPower(t, time.Second)

	var seen PowerState
	clock.onSleep = func(time.Duration) {
		seen = p.State()
	}
	if err := p.Energize(); err != nil {
		t.Fatal(err)
	}
	if seen != PowerSettling {
		t.Errorf("expected state settling during the settle delay, got %s", seen)
	}

	// switched off while settling
	if err := p.Deenergize(); err != nil {
		t.Fatal(err)
	}
	clock.onSleep = func(time.Duration) {
		if err := p.Deenergize(); err != nil {
			t.Error(err)
		}
	}
	if err := p.Energize(); err == nil {
		t.Fatal("expected energize to fail when the rail was switched off while settling")
	}
	if v := p.State(); v != PowerOff || rail.Read() != gpio.Low {
		t.Errorf("expected power off, got %s", v)
	}
}

func TestBacklight(t *testing.T) {
	pin := &gpiotest.Pin{N: "backlight", L: gpio.High}
	b, err := NewBacklight(pin)
	if err != nil {
		t.Fatal(err)
	}
	if b.On() || pin.Read() != gpio.Low {
		t.Fatal("expected backlight off at start")
	}
	if err = b.Set(true); err != nil {
		t.Fatal(err)
	}
	if !b.On() || pin.Read() != gpio.High {
		t.Error("expected backlight on")
	}

	if b, err = NewBacklight(nil); err != nil {
		t.Fatal(err)
	}
	if err = b.Set(true); err != nil || !b.On() {
		t.Errorf("expected unconnected backlight to track state, got %t, %v", b.On(), err)
	}
}
