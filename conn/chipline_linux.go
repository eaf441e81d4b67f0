package conn

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
)

// ChipLine is an output line requested through the Linux GPIO character device.
type ChipLine struct {
	line   *gpiocdev.Line
	chip   string
	offset int
}

// OpenLine requests offset on chip (for example "gpiochip0") as an output, initially inactive.
func OpenLine(chip string, offset int, activeLow bool) (*ChipLine, error) {
	options := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer("flipdot"),
		gpiocdev.AsOutput(0),
	}
	if activeLow {
		options = append(options, gpiocdev.AsActiveLow)
	}
	l, err := gpiocdev.RequestLine(chip, offset, options...)
	if err != nil {
		return nil, fmt.Errorf("conn: request %s:%d: %w", chip, offset, err)
	}
	return &ChipLine{
		line:   l,
		chip:   chip,
		offset: offset,
	}, nil
}

func (c *ChipLine) String() string {
	return fmt.Sprintf("%s:%d", c.chip, c.offset)
}

func (c *ChipLine) Out(level gpio.Level) error {
	var v int
	if level {
		v = 1
	}
	return c.line.SetValue(v)
}

func (c *ChipLine) Close() error {
	return c.line.Close()
}
