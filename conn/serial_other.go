//go:build !linux

package conn

import "errors"

// ErrNotSupported is returned on platforms without termios support.
var ErrNotSupported = errors.New("conn: serial ports not supported")

// Serial is a raw 8N1 serial port.
type Serial struct{}

func OpenSerial(_ string, _ int) (*Serial, error) {
	return nil, ErrNotSupported
}

func (c *Serial) String() string              { return "serial (unsupported)" }
func (c *Serial) Close() error                { return ErrNotSupported }
func (c *Serial) Write(_ []byte) (int, error) { return 0, ErrNotSupported }
func (c *Serial) Read(_ []byte) (int, error)  { return 0, ErrNotSupported }
func (c *Serial) Drain() error                { return ErrNotSupported }
