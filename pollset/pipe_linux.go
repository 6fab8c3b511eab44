//go:build linux
// +build linux

package pollset

import (
	"golang.org/x/sys/unix"
)

// newSignalPipe opens the wakeup pipe with both ends non-blocking, so a
// mutator's write can never stall behind a full pipe.
func newSignalPipe() (r int, w int, err error) {
	var p [2]int
	if err = unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return -1, -1, err
	}
	return p[0], p[1], nil
}
