//go:build !linux

package conn

import "periph.io/x/conn/v3/gpio"

// ChipLine is an output line requested through the Linux GPIO character device.
type ChipLine struct{}

func OpenLine(_ string, _ int, _ bool) (*ChipLine, error) {
	return nil, ErrNotSupported
}

func (c *ChipLine) String() string         { return "gpiochip (unsupported)" }
func (c *ChipLine) Out(_ gpio.Level) error { return ErrNotSupported }
func (c *ChipLine) Close() error           { return ErrNotSupported }
