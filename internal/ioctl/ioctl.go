//go:build linux

// Package ioctl wraps the ioctl system calls needed to drive a serial port.
package ioctl

import (
	"fmt"
	"reflect"
	"syscall"
)

// Command to be sent over ioctl.
type Command uintptr

func (c Command) String() string {
	return fmt.Sprintf("ioctl 0x%04x", uintptr(c))
}

// Do executes the ioctl call, passing ptr (a pointer to a kernel structure) as argument.
func Do(fd uintptr, command Command, ptr interface{}) error {
	var p uintptr

	if ptr != nil {
		v := reflect.ValueOf(ptr)
		p = v.Pointer()
	}

	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, uintptr(command), p)
	if errno != 0 {
		return fmt.Errorf("%s failed: %v", command, errno)
	}
	return nil
}

// Call does a plain ioctl system call with an integer argument.
func Call(fd uintptr, command Command, arg uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, uintptr(command), arg)
	if errno != 0 {
		return fmt.Errorf("%s failed: %v", command, errno)
	}
	return nil
}
