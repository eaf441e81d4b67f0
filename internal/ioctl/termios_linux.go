package ioctl

import "golang.org/x/sys/unix"

// GetTermios reads the terminal attributes of fd.
func GetTermios(fd uintptr) (*unix.Termios, error) {
	t := new(unix.Termios)
	if err := Do(fd, unix.TCGETS, t); err != nil {
		return nil, err
	}
	return t, nil
}

// SetTermios applies the terminal attributes immediately.
func SetTermios(fd uintptr, t *unix.Termios) error {
	return Do(fd, unix.TCSETS, t)
}

// Drain waits until all queued output has been transmitted (tcdrain).
func Drain(fd uintptr) error {
	return Call(fd, unix.TCSBRK, 1)
}

// Flush discards queued input and output.
func Flush(fd uintptr) error {
	return Call(fd, unix.TCFLSH, unix.TCIOFLUSH)
}
