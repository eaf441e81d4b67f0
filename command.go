package flipdot

import "fmt"

// DefaultCommandSize is the capacity of a command buffer.
const DefaultCommandSize = 1024

// Module command tokens, each followed by a single value byte.
const (
	tokenWidth   = 0xD0
	tokenHeight  = 0xD1
	tokenXOffset = 0xD2
	tokenYOffset = 0xD3
	tokenFont    = 0xD4
)

// Module defaults.
const (
	DefaultModeText = 0xA2
	DefaultFont     = 0x73

	textYOrigin = 0x0F // the module counts rows from 15
	fillBand    = 5
	fillPattern = 0x3F
)

// Command is one complete module command before framing.
//
// The buffer never grows past its capacity: an append that does not fit fails
// with ErrBufferFull and leaves the command untouched.
type Command struct {
	buf []byte
}

// NewCommand returns an empty command that holds up to size bytes.
func NewCommand(size int) *Command {
	if size <= 0 {
		size = DefaultCommandSize
	}
	return &Command{buf: make([]byte, 0, size)}
}

func (c *Command) String() string {
	return fmt.Sprintf("command % x", c.buf)
}

// Append adds bytes to the command.
func (c *Command) Append(data ...byte) error {
	if len(c.buf)+len(data) > cap(c.buf) {
		return fmt.Errorf("%w: %d+%d bytes exceeds %d", ErrBufferFull, len(c.buf), len(data), cap(c.buf))
	}
	c.buf = append(c.buf, data...)
	return nil
}

// AppendString adds the raw bytes of s to the command.
func (c *Command) AppendString(s string) error {
	if len(c.buf)+len(s) > cap(c.buf) {
		return fmt.Errorf("%w: %d+%d bytes exceeds %d", ErrBufferFull, len(c.buf), len(s), cap(c.buf))
	}
	c.buf = append(c.buf, s...)
	return nil
}

// Bytes returns the command payload. It is only valid until the next modification.
func (c *Command) Bytes() []byte {
	return c.buf
}

func (c *Command) Len() int {
	return len(c.buf)
}

func (c *Command) Cap() int {
	return cap(c.buf)
}

func (c *Command) Reset() {
	c.buf = c.buf[:0]
}

// copyFrom replaces the contents of c with the contents of src.
func (c *Command) copyFrom(src []byte) error {
	if len(src) > cap(c.buf) {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrBufferFull, len(src), cap(c.buf))
	}
	c.buf = append(c.buf[:0], src...)
	return nil
}

// WriteHeader appends the mode byte and the screen size tokens.
func (c *Command) WriteHeader(mode, width, height byte) error {
	return c.Append(
		mode,
		tokenWidth, width,
		tokenHeight, height,
	)
}

// WriteText appends a text placement: cursor, font and the characters.
func (c *Command) WriteText(text string, x, y, font byte) error {
	if err := c.Append(
		tokenXOffset, x,
		tokenYOffset, y+textYOrigin,
		tokenFont, font,
	); err != nil {
		return err
	}
	return c.AppendString(text)
}

// WriteFill appends a pattern that sets every dot, one 5-row band at a time.
func (c *Command) WriteFill(width, height byte) error {
	bands := (int(height) + fillBand - 1) / fillBand
	for band := 0; band < bands; band++ {
		if err := c.Append(
			tokenXOffset, 0x00,
			tokenYOffset, byte(band*fillBand)+textYOrigin,
		); err != nil {
			return err
		}
		for x := 0; x < int(width); x++ {
			if err := c.Append(fillPattern); err != nil {
				return err
			}
		}
	}
	return nil
}
