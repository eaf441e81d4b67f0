package conn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// ErrLine is returned when a GPIO line name can't be resolved.
var ErrLine = errors.New("conn: GPIO line is invalid")

// Line is a digital output line, such as a power enable or a latch clock.
//
// Both periph pins (gpio.PinOut) and ChipLine satisfy it.
type Line interface {
	Out(gpio.Level) error
}

type activeLow struct {
	Line
}

// ActiveLow inverts the level written to l.
func ActiveLow(l Line) Line {
	return activeLow{Line: l}
}

func (l activeLow) Out(level gpio.Level) error {
	return l.Line.Out(!level)
}

func (l activeLow) String() string {
	return fmt.Sprintf("%s (active low)", l.Line)
}

// LineByName resolves a line name. Names of the form "gpiochipN:offset" are
// requested through the character device, everything else ("GPIO17", "P1_11")
// is looked up in the periph registry. An empty name returns a nil Line.
func LineByName(name string, activeLow bool) (Line, error) {
	if name == "" {
		return nil, nil
	}

	if chip, offset, ok := strings.Cut(name, ":"); ok {
		n, err := strconv.Atoi(offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrLine, name)
		}
		l, err := OpenLine(chip, n, activeLow)
		if err != nil {
			return nil, err
		}
		return l, nil
	}

	p := gpioreg.ByName(name)
	if p == nil || p == gpio.INVALID {
		return nil, fmt.Errorf("%w: %q", ErrLine, name)
	}
	if activeLow {
		return ActiveLow(p), nil
	}
	return p, nil
}

type discard struct{}

func (discard) Out(gpio.Level) error { return nil }
func (discard) String() string       { return "discard" }

// Discard is a Line that is not connected to anything.
var Discard Line = discard{}
