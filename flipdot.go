// Package flipdot contains drivers for bistable dot-matrix (flipdot) displays.
//
// Two hardware generations are supported. A Panel drives the dots directly
// through cascaded shift registers, pulsing one coil per pixel update. A Module
// drives a third-party RS-485 display controller using checksum-framed packets.
//
// Both drivers decouple the cheap "please show this" call made by a producer
// from a single consumer goroutine (started with Run) that owns the bus and the
// coil/module power rail.
package flipdot

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
)

var debug bool

func init() {
	debug = os.Getenv("FLIPDOT_DEBUG") != ""
}

// Errors
var (
	ErrBounds       = errors.New("flipdot: out of display bounds")
	ErrBusy         = errors.New("flipdot: display busy")
	ErrShortWrite   = errors.New("flipdot: short write")
	ErrBufferFull   = errors.New("flipdot: command buffer full")
	ErrFrame        = errors.New("flipdot: malformed frame")
	ErrChecksum     = errors.New("flipdot: checksum mismatch")
	ErrNotSupported = errors.New("flipdot: not supported")
)

func logger(l logrus.FieldLogger) logrus.FieldLogger {
	if l != nil {
		return l
	}
	std := logrus.StandardLogger()
	if debug {
		std.SetLevel(logrus.DebugLevel)
	}
	return std
}
