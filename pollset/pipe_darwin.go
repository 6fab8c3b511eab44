//go:build darwin
// +build darwin

package pollset

import (
	"golang.org/x/sys/unix"
)

// newSignalPipe opens the wakeup pipe with both ends non-blocking. Darwin has
// no pipe2, so the flags are set after the fact.
func newSignalPipe() (r int, w int, err error) {
	var p [2]int
	if err = unix.Pipe(p[:]); err != nil {
		return -1, -1, err
	}
	for _, fd := range p {
		if err = unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return -1, -1, err
		}
		unix.CloseOnExec(fd)
	}
	return p[0], p[1], nil
}
