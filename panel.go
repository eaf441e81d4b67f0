package flipdot

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/flipdot/conn"
	"github.com/BeatGlow/flipdot/draw"
	"github.com/BeatGlow/flipdot/pixel"
)

// DefaultPollInterval is the longest a consumer waits for work before it
// re-checks the idle power rule.
const DefaultPollInterval = 10 * time.Millisecond

// PanelConfig is the shift register panel configuration.
type PanelConfig struct {
	// Geometry of the panel chain.
	Geometry Geometry

	// QueueSize is the number of pending pixel updates.
	QueueSize int

	// FlipPulse is how long a coil stays energized to flip one dot.
	FlipPulse time.Duration

	// Clear pin (shift register SRCLR, active low).
	Clear conn.Line

	// Latch pin (shift register RCLK). Chip select latches the data at the
	// end of each transfer; the latch pin is only pulsed to release the coils.
	Latch conn.Line

	// Coil pin enables the coil DC/DC converter.
	Coil conn.Line

	// Indicator pin mirrors the coil power (optional).
	Indicator conn.Line

	// Backlight pin (optional).
	Backlight conn.Line

	// Settle is the coil supply settle delay after power up.
	Settle time.Duration

	// IdleTimeout switches the coil supply off after a period without updates.
	IdleTimeout time.Duration

	// PollInterval bounds the consumer wait.
	PollInterval time.Duration

	// Face is used by SendText.
	Face draw.Face

	Clock  Clock
	Logger logrus.FieldLogger
}

// DefaultPanelConfig are the default configuration values.
var DefaultPanelConfig = PanelConfig{
	Geometry:     DefaultGeometry,
	QueueSize:    DefaultQueueSize,
	FlipPulse:    200 * time.Microsecond,
	Settle:       5 * time.Millisecond,
	IdleTimeout:  time.Second,
	PollInterval: DefaultPollInterval,
}

// Status is a snapshot of a display driver.
type Status struct {
	Power     PowerState
	Backlight bool
	Inverted  bool
	Pending   int
	Sent      uint64
	Failed    uint64
}

// Panel drives flipdot panels through cascaded shift registers, one dot at a time.
//
// Drawing calls (producers) deduplicate against the last pushed frame and queue
// the changed dots; Run (the consumer) pulses them out in order.
type Panel struct {
	bus       ShiftBus
	geometry  Geometry
	clear     conn.Line
	latch     conn.Line
	flipPulse time.Duration
	poll      time.Duration
	queue     *FIFO
	power     *PowerSequencer
	backlight *Backlight
	face      draw.Face
	clock     Clock
	log       logrus.FieldLogger
	sent      atomic.Uint64
	failed    atomic.Uint64

	// producer side, never touched by Run
	mu    sync.Mutex
	frame *pixel.MonoImage

	// written with mu held, read without it
	inverted atomic.Bool
}

var _ display.Drawer = (*Panel)(nil)

// NewPanel sets up a panel on bus. The coil supply starts off and the shift
// register outputs are cleared; call Run to start updating the dots.
func NewPanel(bus ShiftBus, config *PanelConfig) (*Panel, error) {
	if config == nil {
		config = new(PanelConfig)
		*config = DefaultPanelConfig
	}
	if config.Clear == nil {
		return nil, ErrClearPin
	}
	if config.Latch == nil {
		return nil, ErrLatchPin
	}
	if config.Coil == nil {
		return nil, ErrPowerPin
	}

	if config.Geometry == (Geometry{}) {
		config.Geometry = DefaultPanelConfig.Geometry
	}
	if err := config.Geometry.validate(); err != nil {
		return nil, err
	}
	if config.QueueSize == 0 {
		config.QueueSize = DefaultPanelConfig.QueueSize
	}
	if config.FlipPulse == 0 {
		config.FlipPulse = DefaultPanelConfig.FlipPulse
	}
	if config.Settle == 0 {
		config.Settle = DefaultPanelConfig.Settle
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = DefaultPanelConfig.IdleTimeout
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultPanelConfig.PollInterval
	}
	if config.Face == nil {
		config.Face = draw.DefaultFace
	}
	if config.Clock == nil {
		config.Clock = systemClock{}
	}

	p := &Panel{
		bus:       bus,
		geometry:  config.Geometry,
		clear:     config.Clear,
		latch:     config.Latch,
		flipPulse: config.FlipPulse,
		poll:      config.PollInterval,
		queue:     NewFIFO(config.QueueSize),
		face:      config.Face,
		clock:     config.Clock,
		log:       logger(config.Logger),
		frame:     pixel.NewMonoImage(config.Geometry.Cols, config.Geometry.Rows),
	}

	var err error
	if p.power, err = NewPowerSequencer(&PowerConfig{
		Rail:        config.Coil,
		Indicator:   config.Indicator,
		Settle:      config.Settle,
		IdleTimeout: config.IdleTimeout,
		Clock:       config.Clock,
		Logger:      p.log,
	}); err != nil {
		return nil, err
	}
	if p.backlight, err = NewBacklight(config.Backlight); err != nil {
		return nil, err
	}
	if err = p.clearOutputs(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Panel) String() string {
	return fmt.Sprintf("flipdot panel %dx%d", p.geometry.Cols, p.geometry.Rows)
}

func (p *Panel) Geometry() Geometry {
	return p.geometry
}

func (p *Panel) ColorModel() color.Model {
	return pixel.MonoModel
}

func (p *Panel) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.geometry.Cols, p.geometry.Rows)
}

// PushPixel queues a dot update. Dots outside the panel are ignored. Unless
// force is set, a dot that already has the requested state is not queued.
// PushPixel blocks while the queue is full.
func (p *Panel) PushPixel(ctx context.Context, x, y int, on, force bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushLocked(ctx, x, y, on, force)
}

func (p *Panel) pushLocked(ctx context.Context, x, y int, on, force bool) error {
	if !p.geometry.In(x, y) {
		return nil
	}
	if p.frame.Dot(x, y) == on && !force {
		return nil
	}

	was := p.frame.Dot(x, y)
	p.frame.SetDot(x, y, on)
	if err := p.queue.Push(ctx, PixelUpdate{X: x, Y: y, On: on}); err != nil {
		p.frame.SetDot(x, y, was)
		return err
	}
	return nil
}

// Paint runs fn with exclusive access to the frame. Everything fn draws is
// queued as one uninterrupted sequence of updates.
func (p *Panel) Paint(ctx context.Context, fn func(dst draw.Image)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := &canvas{p: p, ctx: ctx}
	fn(c)
	return c.err
}

// At returns the displayed color at (x, y), taking inversion into account.
func (p *Panel) At(x, y int) color.Color {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.atLocked(x, y)
}

func (p *Panel) atLocked(x, y int) color.Color {
	if !p.geometry.In(x, y) {
		return color.Transparent
	}
	return pixel.Mono{On: p.frame.Dot(x, y) != p.inverted.Load()}
}

// Set draws one dot; it blocks while the update queue is full.
func (p *Panel) Set(x, y int, c color.Color) {
	_ = p.Paint(context.Background(), func(dst draw.Image) {
		dst.Set(x, y, c)
	})
}

// Draw copies src onto the panel (periph display.Drawer).
func (p *Panel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	return p.Paint(context.Background(), func(dst draw.Image) {
		draw.Draw(dst, r, src, sp, draw.Src)
	})
}

// SendText renders text with its top-left corner at (x, y). The area behind
// the glyphs is cleared first.
func (p *Panel) SendText(ctx context.Context, text string, x, y int) error {
	return p.Paint(ctx, func(dst draw.Image) {
		draw.Box(dst, draw.TextBounds(p.face, x, y, text), pixel.Off)
		draw.Text(dst, p.face, x, y, text, pixel.On)
	})
}

// Clear turns every dot off; dots that are already off are not pulsed again.
func (p *Panel) Clear(ctx context.Context) error {
	return p.Paint(ctx, func(dst draw.Image) {
		draw.Box(dst, p.Bounds(), pixel.Off)
	})
}

// FillWhite turns every dot on.
func (p *Panel) FillWhite(ctx context.Context) error {
	return p.Paint(ctx, func(dst draw.Image) {
		draw.Box(dst, p.Bounds(), pixel.On)
	})
}

// Reset cancels inversion and pulses every dot off, whatever its last known state.
func (p *Panel) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inverted.Store(false)
	for y := 0; y < p.geometry.Rows; y++ {
		for x := 0; x < p.geometry.Cols; x++ {
			if err := p.pushLocked(ctx, x, y, false, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetInverted switches between normal and inverted display. Changing it
// repaints every dot. ctx is only checked before the repaint starts; once
// begun the repaint runs to completion.
func (p *Panel) SetInverted(ctx context.Context, inverted bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setInvertedLocked(ctx, inverted)
}

// Invert toggles inversion and reports the new state.
func (p *Panel) Invert(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	inverted := !p.inverted.Load()
	if err := p.setInvertedLocked(ctx, inverted); err != nil {
		return !inverted, err
	}
	return inverted, nil
}

func (p *Panel) setInvertedLocked(ctx context.Context, inverted bool) error {
	if p.inverted.Load() == inverted {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// A partial repaint would leave the image half inverted.
	ctx = context.WithoutCancel(ctx)
	p.inverted.Store(inverted)
	for x := 0; x < p.geometry.Cols; x++ {
		for y := 0; y < p.geometry.Rows; y++ {
			if err := p.pushLocked(ctx, x, y, !p.frame.Dot(x, y), true); err != nil {
				return err
			}
		}
	}
	return nil
}

// Inverted reports whether the display is inverted. It never waits for a
// producer holding the frame.
func (p *Panel) Inverted() bool {
	return p.inverted.Load()
}

func (p *Panel) SetBacklight(on bool) error {
	return p.backlight.Set(on)
}

func (p *Panel) Status() Status {
	return Status{
		Power:     p.power.State(),
		Backlight: p.backlight.On(),
		Inverted:  p.Inverted(),
		Pending:   p.queue.Len(),
		Sent:      p.sent.Load(),
		Failed:    p.failed.Load(),
	}
}

// Halt switches the coil supply off.
func (p *Panel) Halt() error {
	return p.power.Deenergize()
}

// Run pulses queued updates out to the panel until ctx is done, then switches
// the coil supply off.
func (p *Panel) Run(ctx context.Context) error {
	p.log.WithFields(logrus.Fields{
		"display": p.String(),
		"queue":   p.queue.Cap(),
	}).Info("flipdot: panel update loop started")

	for {
		if err := ctx.Err(); err != nil {
			if herr := p.Halt(); herr != nil {
				p.log.WithError(herr).Warn("flipdot: coil power off failed")
			}
			return err
		}

		if u, ok := p.queue.Pop(p.poll); ok {
			if err := p.update(u); err != nil {
				p.failed.Add(1)
				p.log.WithError(err).WithField("pixel", u).Warn("flipdot: pixel update failed")
			} else {
				p.sent.Add(1)
			}
		}

		if _, err := p.power.Evaluate(); err != nil {
			p.log.WithError(err).Warn("flipdot: coil power off failed")
		}
	}
}

func (p *Panel) update(u PixelUpdate) error {
	if err := p.power.Energize(); err != nil {
		return fmt.Errorf("flipdot: coil power on: %w", err)
	}
	err := p.outputPixel(u)
	p.power.Touch()
	return err
}

// outputPixel selects the coil for u, holds it for the flip pulse and releases it.
func (p *Panel) outputPixel(u PixelUpdate) error {
	data := p.geometry.Encode(u)
	if debug {
		p.log.Debugf("flipdot: %s: %02x %02x %02x", u, data[0], data[1], data[2])
	}

	err := p.bus.Tx(data[:], nil)
	if err == nil {
		p.clock.Sleep(p.flipPulse)
	} else {
		err = fmt.Errorf("flipdot: shift out %s: %w", u, err)
	}
	if cerr := p.clearOutputs(); err == nil {
		err = cerr
	}
	return err
}

// clearOutputs resets the shift registers and latches the empty state, which
// releases every coil.
func (p *Panel) clearOutputs() error {
	if err := p.clear.Out(gpio.Low); err != nil {
		return err
	}
	if err := p.latch.Out(gpio.Low); err != nil {
		return err
	}
	if err := p.latch.Out(gpio.High); err != nil {
		return err
	}
	return p.clear.Out(gpio.High)
}

// canvas is the producer view of the panel used while Paint holds the frame lock.
type canvas struct {
	p   *Panel
	ctx context.Context
	err error
}

func (c *canvas) ColorModel() color.Model {
	return pixel.MonoModel
}

func (c *canvas) Bounds() image.Rectangle {
	return c.p.Bounds()
}

func (c *canvas) At(x, y int) color.Color {
	return c.p.atLocked(x, y)
}

func (c *canvas) Set(x, y int, col color.Color) {
	if c.err != nil {
		return
	}
	c.err = c.p.pushLocked(c.ctx, x, y, pixel.IsOn(col) != c.p.inverted.Load(), false)
}
