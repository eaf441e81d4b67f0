package flipdot

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/flipdot/conn"
)

var errPowerAborted = errors.New("flipdot: power rail switched off while settling")

// NoIdleTimeout keeps the power rail energized once it has been switched on.
const NoIdleTimeout time.Duration = -1

// PowerState is the state of the drive circuit power rail.
type PowerState uint8

// Power rail states.
const (
	PowerOff PowerState = iota
	PowerSettling
	PowerOn
)

func (s PowerState) String() string {
	switch s {
	case PowerSettling:
		return "settling"
	case PowerOn:
		return "on"
	default:
		return "off"
	}
}

// Clock provides monotonic time and sleeping.
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time         { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// PowerConfig configures a PowerSequencer.
type PowerConfig struct {
	// Rail enables the coil DC/DC converter or the module supply.
	Rail conn.Line

	// Indicator mirrors the rail, typically an on-board LED (optional).
	Indicator conn.Line

	// Settle is the delay after energizing the rail before any bus traffic.
	Settle time.Duration

	// IdleTimeout is the time without activity after which the rail is switched off.
	// Use NoIdleTimeout to keep it on.
	IdleTimeout time.Duration

	// Clock defaults to the system clock.
	Clock Clock

	Logger logrus.FieldLogger
}

// PowerSnapshot is a copy of the sequencer state.
type PowerSnapshot struct {
	State        PowerState
	LastActivity time.Time
	IdleTimeout  time.Duration
}

// PowerSequencer decides when the drive circuitry may be energized.
//
// The rail is only switched on as a prerequisite for a transmission, and only
// switched off by Evaluate once the idle timeout expired (or by Deenergize).
type PowerSequencer struct {
	mu           sync.Mutex
	rail         conn.Line
	indicator    conn.Line
	settle       time.Duration
	idleTimeout  time.Duration
	clock        Clock
	log          logrus.FieldLogger
	state        PowerState
	lastActivity time.Time
}

// NewPowerSequencer returns a sequencer with the rail off.
//
// The rail line is driven low immediately, so the hardware matches the initial state.
func NewPowerSequencer(config *PowerConfig) (*PowerSequencer, error) {
	if config.Rail == nil {
		return nil, ErrPowerPin
	}
	p := &PowerSequencer{
		rail:        config.Rail,
		indicator:   config.Indicator,
		settle:      config.Settle,
		idleTimeout: config.IdleTimeout,
		clock:       config.Clock,
		log:         logger(config.Logger),
	}
	if p.clock == nil {
		p.clock = systemClock{}
	}
	if err := p.setRail(false); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PowerSequencer) setRail(on bool) error {
	if err := p.rail.Out(gpio.Level(on)); err != nil {
		return err
	}
	if p.indicator != nil {
		if err := p.indicator.Out(gpio.Level(on)); err != nil {
			p.log.WithError(err).Warn("flipdot: indicator update failed")
		}
	}
	return nil
}

// Energize switches the rail on and waits for it to settle. It returns
// immediately if the rail is already on. The settle delay runs without the
// sequencer lock, so State reports PowerSettling meanwhile; only the consumer
// loop may call Energize.
func (p *PowerSequencer) Energize() error {
	p.mu.Lock()
	if p.state == PowerOn {
		p.mu.Unlock()
		return nil
	}
	p.state = PowerSettling
	if err := p.setRail(true); err != nil {
		p.state = PowerOff
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	p.log.WithField("settle", p.settle).Debug("flipdot: power rail on")
	p.clock.Sleep(p.settle)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PowerSettling {
		return errPowerAborted
	}
	p.state = PowerOn
	p.lastActivity = p.clock.Now()
	return nil
}

// Touch records bus activity, restarting the idle timer.
func (p *PowerSequencer) Touch() {
	p.mu.Lock()
	p.lastActivity = p.clock.Now()
	p.mu.Unlock()
}

// Evaluate switches the rail off if it has been idle for at least the idle
// timeout. It reports whether the rail was switched off.
func (p *PowerSequencer) Evaluate() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PowerOn || p.idleTimeout < 0 {
		return false, nil
	}
	idle := p.clock.Now().Sub(p.lastActivity)
	if idle < p.idleTimeout {
		return false, nil
	}
	if err := p.setRail(false); err != nil {
		return false, err
	}
	p.state = PowerOff
	p.log.WithField("idle", idle).Debug("flipdot: power rail off")
	return true, nil
}

// Deenergize switches the rail off regardless of activity.
func (p *PowerSequencer) Deenergize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.setRail(false); err != nil {
		return err
	}
	p.state = PowerOff
	return nil
}

func (p *PowerSequencer) State() PowerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PowerSequencer) Snapshot() PowerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PowerSnapshot{
		State:        p.state,
		LastActivity: p.lastActivity,
		IdleTimeout:  p.idleTimeout,
	}
}

// Backlight is an independent on/off line. It is never touched by the power sequencer.
type Backlight struct {
	mu   sync.Mutex
	line conn.Line
	on   bool
}

// NewBacklight returns a backlight switched off. A nil line gives a backlight
// that only tracks its state.
func NewBacklight(line conn.Line) (*Backlight, error) {
	b := &Backlight{line: line}
	if err := b.Set(false); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backlight) Set(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.line != nil {
		if err := b.line.Out(gpio.Level(on)); err != nil {
			return err
		}
	}
	b.on = on
	return nil
}

func (b *Backlight) On() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.on
}
