package conn

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/BeatGlow/flipdot/internal/ioctl"
)

var baudRates = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

// Serial is a raw 8N1 serial port, typically wired to an RS-485 transceiver.
type Serial struct {
	f    *os.File
	fd   uintptr
	name string
	baud int
}

// OpenSerial opens a tty device in raw 8N1 mode at the requested baud rate.
func OpenSerial(name string, baud int) (*Serial, error) {
	speed, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("conn: unsupported baud rate %d", baud)
	}

	f, err := os.OpenFile(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}

	c := &Serial{
		f:    f,
		fd:   f.Fd(),
		name: name,
		baud: baud,
	}

	t, err := ioctl.GetTermios(c.fd)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.INPCK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ISIG | unix.ICANON | unix.IEXTEN | unix.ECHO | unix.ECHOE | unix.ECHOK | unix.ECHONL
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB | unix.CRTSCTS | unix.HUPCL | unix.CBAUD
	t.Cflag |= unix.CREAD | unix.CLOCAL | unix.CS8 | speed
	for i := range t.Cc {
		t.Cc[i] = 0
	}
	t.Cc[unix.VMIN] = 1
	t.Ispeed = speed
	t.Ospeed = speed

	if err = ioctl.SetTermios(c.fd, t); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err = unix.SetNonblock(int(c.fd), false); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err = ioctl.Flush(c.fd); err != nil {
		_ = f.Close()
		return nil, err
	}

	return c, nil
}

func (c *Serial) String() string {
	return fmt.Sprintf("serial %s %d 8N1", c.name, c.baud)
}

func (c *Serial) Close() error {
	return c.f.Close()
}

func (c *Serial) Write(b []byte) (int, error) {
	return c.f.Write(b)
}

func (c *Serial) Read(b []byte) (int, error) {
	return c.f.Read(b)
}

// Drain blocks until every written byte has left the UART.
func (c *Serial) Drain() error {
	return ioctl.Drain(c.fd)
}
