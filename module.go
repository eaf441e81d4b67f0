package flipdot

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/flipdot/conn"
)

// ModuleConfig is the RS-485 display module configuration.
type ModuleConfig struct {
	// Address of the module on the bus.
	Address byte

	// Width and Height of the module in dots.
	Width, Height byte

	// Font is the default font code for SendText.
	Font byte

	// Mode is the header mode byte.
	Mode byte

	// CommandSize is the command buffer capacity in bytes.
	CommandSize int

	// Power enables the module supply (optional).
	Power conn.Line

	// Backlight pin (optional).
	Backlight conn.Line

	// Enable lines are asserted once at start up, typically the transceiver
	// receiver and shutdown controls (optional).
	Enable []conn.Line

	// TxEnable is asserted while a frame is written (optional).
	TxEnable conn.Line

	// Settle is the module supply settle delay after power up.
	Settle time.Duration

	// IdleTimeout switches the module supply off after a period without commands.
	IdleTimeout time.Duration

	// LockTimeout is how long a producer waits for the command slot.
	LockTimeout time.Duration

	// PollInterval bounds the consumer wait.
	PollInterval time.Duration

	Clock  Clock
	Logger logrus.FieldLogger
}

// DefaultModuleConfig are the default configuration values.
var DefaultModuleConfig = ModuleConfig{
	Address:      0x06,
	Width:        112,
	Height:       19,
	Font:         DefaultFont,
	Mode:         DefaultModeText,
	CommandSize:  DefaultCommandSize,
	Settle:       500 * time.Millisecond,
	IdleTimeout:  NoIdleTimeout,
	LockTimeout:  DefaultLockTimeout,
	PollInterval: DefaultPollInterval,
}

// Module drives a display module over an RS-485 link.
//
// Producers build whole commands and hand them to a single-entry slot; Run
// frames the most recent one and writes it to the port.
type Module struct {
	port      SerialPort
	address   byte
	width     byte
	height    byte
	font      byte
	mode      byte
	size      int
	txEnable  conn.Line
	poll      time.Duration
	slot      *Slot
	power     *PowerSequencer
	backlight *Backlight
	log       logrus.FieldLogger
	wire      []byte
	sent      atomic.Uint64
	failed    atomic.Uint64
}

// NewModule sets up a module on port. Call Run to start transmitting.
func NewModule(port SerialPort, config *ModuleConfig) (*Module, error) {
	if config == nil {
		config = new(ModuleConfig)
		*config = DefaultModuleConfig
	}
	if config.Address == 0 {
		config.Address = DefaultModuleConfig.Address
	}
	if config.Width == 0 {
		config.Width = DefaultModuleConfig.Width
	}
	if config.Height == 0 {
		config.Height = DefaultModuleConfig.Height
	}
	if config.Font == 0 {
		config.Font = DefaultModuleConfig.Font
	}
	if config.Mode == 0 {
		config.Mode = DefaultModuleConfig.Mode
	}
	if config.CommandSize == 0 {
		config.CommandSize = DefaultModuleConfig.CommandSize
	}
	if config.Settle == 0 {
		config.Settle = DefaultModuleConfig.Settle
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = DefaultModuleConfig.IdleTimeout
	}
	if config.LockTimeout == 0 {
		config.LockTimeout = DefaultModuleConfig.LockTimeout
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultModuleConfig.PollInterval
	}
	if config.Power == nil {
		// The supply is hard wired; the sequencer still tracks settle and idle.
		config.Power = conn.Discard
	}

	m := &Module{
		port:     port,
		address:  config.Address,
		width:    config.Width,
		height:   config.Height,
		font:     config.Font,
		mode:     config.Mode,
		size:     config.CommandSize,
		txEnable: config.TxEnable,
		poll:     config.PollInterval,
		slot:     NewSlot(config.CommandSize, config.LockTimeout),
		log:      logger(config.Logger),
		wire:     make([]byte, 0, 2*config.CommandSize+6),
	}

	var err error
	if m.power, err = NewPowerSequencer(&PowerConfig{
		Rail:        config.Power,
		Settle:      config.Settle,
		IdleTimeout: config.IdleTimeout,
		Clock:       config.Clock,
		Logger:      m.log,
	}); err != nil {
		return nil, err
	}
	if m.backlight, err = NewBacklight(config.Backlight); err != nil {
		return nil, err
	}
	for _, line := range config.Enable {
		if err = line.Out(gpio.High); err != nil {
			return nil, err
		}
	}
	if m.txEnable != nil {
		if err = m.txEnable.Out(gpio.Low); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Module) String() string {
	return fmt.Sprintf("flipdot module %dx%d@%#02x", m.width, m.height, m.address)
}

func (m *Module) Width() int  { return int(m.width) }
func (m *Module) Height() int { return int(m.height) }

// SubmitCommand hands a complete payload to the transmitter. A pending command
// that has not been sent yet is replaced. It returns ErrBusy if the command
// slot could not be locked in time.
func (m *Module) SubmitCommand(ctx context.Context, payload []byte) error {
	if err := m.slot.Put(ctx, payload); err != nil {
		return err
	}
	if debug {
		m.log.Debugf("flipdot: queued % x", payload)
	}
	return nil
}

// SendRaw submits data as the command payload, unchanged.
func (m *Module) SendRaw(ctx context.Context, data []byte) error {
	return m.SubmitCommand(ctx, data)
}

// SendText shows text at (x, y) in the default font.
func (m *Module) SendText(ctx context.Context, text string, x, y int) error {
	return m.SendTextFont(ctx, text, x, y, m.font)
}

// SendTextFont shows text at (x, y) in the given module font.
func (m *Module) SendTextFont(ctx context.Context, text string, x, y int, font byte) error {
	if x < 0 || x >= int(m.width) || y < 0 || y >= int(m.height) {
		return fmt.Errorf("%w: text at %d,%d", ErrBounds, x, y)
	}
	c := NewCommand(m.size)
	if err := c.WriteHeader(m.mode, m.width, m.height); err != nil {
		return err
	}
	if err := c.WriteText(text, byte(x), byte(y), font); err != nil {
		return err
	}
	return m.SubmitCommand(ctx, c.Bytes())
}

// FillWhite sets every dot.
func (m *Module) FillWhite(ctx context.Context) error {
	c := NewCommand(m.size)
	if err := c.WriteHeader(m.mode, m.width, m.height); err != nil {
		return err
	}
	if err := c.WriteFill(m.width, m.height); err != nil {
		return err
	}
	return m.SubmitCommand(ctx, c.Bytes())
}

// Clear blanks the module by sending an empty text command.
func (m *Module) Clear(ctx context.Context) error {
	return m.SendText(ctx, "", 0, 0)
}

func (m *Module) SetBacklight(on bool) error {
	return m.backlight.Set(on)
}

func (m *Module) Status() Status {
	return Status{
		Power:     m.power.State(),
		Backlight: m.backlight.On(),
		Sent:      m.sent.Load(),
		Failed:    m.failed.Load(),
	}
}

// Halt switches the module supply off.
func (m *Module) Halt() error {
	return m.power.Deenergize()
}

// Run transmits submitted commands until ctx is done, then switches the module
// supply off.
func (m *Module) Run(ctx context.Context) error {
	m.log.WithField("display", m.String()).Info("flipdot: module transmitter started")

	for {
		if err := ctx.Err(); err != nil {
			if herr := m.Halt(); herr != nil {
				m.log.WithError(herr).Warn("flipdot: module power off failed")
			}
			return err
		}

		if cmd, ok := m.slot.Take(ctx, m.poll); ok {
			if err := m.transmit(cmd); err != nil {
				m.failed.Add(1)
				m.log.WithError(err).Warn("flipdot: command transmission failed")
			} else {
				m.sent.Add(1)
			}
		}

		if _, err := m.power.Evaluate(); err != nil {
			m.log.WithError(err).Warn("flipdot: module power off failed")
		}
	}
}

func (m *Module) transmit(cmd *Command) error {
	if err := m.power.Energize(); err != nil {
		return fmt.Errorf("flipdot: module power on: %w", err)
	}
	defer m.power.Touch()

	m.wire = AppendFrame(m.wire[:0], m.address, cmd.Bytes())
	if debug {
		m.log.Debugf("flipdot: tx % x", m.wire)
	}

	if m.txEnable != nil {
		if err := m.txEnable.Out(gpio.High); err != nil {
			return err
		}
		defer func() {
			if err := m.txEnable.Out(gpio.Low); err != nil {
				m.log.WithError(err).Warn("flipdot: transmit enable release failed")
			}
		}()
	}

	n, err := m.port.Write(m.wire)
	if d, ok := m.port.(drainer); ok {
		if derr := d.Drain(); derr != nil && err == nil {
			err = derr
		}
	}
	if err != nil {
		return fmt.Errorf("flipdot: write frame: %w", err)
	}
	if n < len(m.wire) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(m.wire))
	}
	return nil
}
