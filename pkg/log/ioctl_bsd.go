//go:build darwin || freebsd || netbsd || openbsd

package log

import "golang.org/x/sys/unix"

const ioctlGetTermios = unix.TIOCGETA
