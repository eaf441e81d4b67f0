package flipdot

import (
	"errors"
	"fmt"
	"io"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/BeatGlow/flipdot/conn"
)

// Line errors.
var (
	ErrClearPin = errors.New("flipdot: shift register clear GPIO line is invalid")
	ErrLatchPin = errors.New("flipdot: latch clock GPIO line is invalid")
	ErrPowerPin = errors.New("flipdot: power enable GPIO line is invalid")
)

// ShiftBus clocks bytes into the shift register chain. The end of a
// transaction (chip select going high) latches the register outputs.
type ShiftBus interface {
	Tx(w, r []byte) error
}

// SerialPort is the RS-485 link to a display module.
type SerialPort interface {
	io.Writer
}

type drainer interface {
	Drain() error
}

// SPIConfig describes the shift register SPI bus.
type SPIConfig struct {
	// Port is the periph SPI port name, empty for the first available port.
	Port string

	// Speed is the SPI clock.
	Speed physic.Frequency

	// Mode is the SPI mode; the 74HC595 chain samples on the rising edge.
	Mode spi.Mode
}

// DefaultSPIConfig are the default configuration values.
var DefaultSPIConfig = SPIConfig{
	Port:  "",
	Speed: 10 * physic.MegaHertz,
	Mode:  spi.Mode0,
}

// ValidSPISpeeds are SPI clocks the shift register chain is known to work at.
var ValidSPISpeeds = []physic.Frequency{
	500 * physic.KiloHertz,
	1 * physic.MegaHertz,
	2 * physic.MegaHertz,
	4 * physic.MegaHertz,
	8 * physic.MegaHertz,
	10 * physic.MegaHertz,
	16 * physic.MegaHertz,
	20 * physic.MegaHertz,
}

// OpenSPI opens the shift register bus.
func OpenSPI(config *SPIConfig) (*conn.SPI, error) {
	if config == nil {
		config = new(SPIConfig)
		*config = DefaultSPIConfig
	}
	if config.Speed == 0 {
		config.Speed = DefaultSPIConfig.Speed
	}

	var valid bool
	for _, speed := range ValidSPISpeeds {
		if valid = speed == config.Speed; valid {
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("flipdot: invalid SPI speed %s", config.Speed)
	}

	return conn.OpenSPI(config.Port, config.Speed, config.Mode)
}

// SerialConfig describes the RS-485 serial link.
type SerialConfig struct {
	// Device is the tty device.
	Device string

	// Baud is the line speed; the module runs 8N1.
	Baud int
}

// DefaultSerialConfig are the default configuration values.
var DefaultSerialConfig = SerialConfig{
	Device: "/dev/ttyS0",
	Baud:   4800,
}

// OpenSerial opens the RS-485 link.
func OpenSerial(config *SerialConfig) (*conn.Serial, error) {
	if config == nil {
		config = new(SerialConfig)
		*config = DefaultSerialConfig
	}
	if config.Device == "" {
		config.Device = DefaultSerialConfig.Device
	}
	if config.Baud == 0 {
		config.Baud = DefaultSerialConfig.Baud
	}
	return conn.OpenSerial(config.Device, config.Baud)
}
