//go:build linux || darwin || freebsd || netbsd || openbsd

package log

import (
	"os"

	"golang.org/x/sys/unix"
)

// isTerminal reports whether f refers to a terminal device.
func isTerminal(f *os.File) bool {
	_, err := unix.IoctlGetTermios(int(f.Fd()), ioctlGetTermios)
	return err == nil
}
