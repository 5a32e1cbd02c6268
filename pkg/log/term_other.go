//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package log

import "os"

func isTerminal(f *os.File) bool {
	return false
}
