//go:build linux || darwin
// +build linux darwin

package pollset

import (
	"golang.org/x/sys/unix"
)

// toPollEvents translates an interest mask into the host's poll(2) bits.
// The encodings coincide on these hosts; the translation keeps the core
// honest about the boundary so a non-poll backend can slot in.
func toPollEvents(m EventMask) int16 {
	var ev int16
	if m&EventRead != 0 {
		ev |= unix.POLLIN
	}
	if m&EventPriority != 0 {
		ev |= unix.POLLPRI
	}
	if m&EventWrite != 0 {
		ev |= unix.POLLOUT
	}
	return ev
}

// fromPollEvents translates reported revents back into an EventMask.
func fromPollEvents(ev int16) EventMask {
	var m EventMask
	if ev&unix.POLLIN != 0 {
		m |= EventRead
	}
	if ev&unix.POLLPRI != 0 {
		m |= EventPriority
	}
	if ev&unix.POLLOUT != 0 {
		m |= EventWrite
	}
	if ev&unix.POLLERR != 0 {
		m |= EventErr
	}
	if ev&unix.POLLHUP != 0 {
		m |= EventHup
	}
	if ev&unix.POLLNVAL != 0 {
		m |= EventNval
	}
	return m
}

// waitReady blocks in poll(2) until a descriptor is ready, the timeout
// elapses (0 returned) or a signal interrupts. Retrying is the caller's
// business.
func waitReady(fds []unix.PollFd, timeoutMillis int) (int, error) {
	return unix.Poll(fds, timeoutMillis)
}

// isEINTR reports whether the readiness primitive was interrupted by a
// signal rather than failing.
func isEINTR(err error) bool {
	return err == unix.EINTR
}
