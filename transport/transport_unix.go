//go:build linux || darwin
// +build linux darwin

package transport

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"
)

// SocketTransport is a non-blocking stream socket. Writes the kernel refuses
// land in a pending queue; the owner is expected to watch the fd for WRITE
// readiness while Pending reports true and call Flush until it empties.
type SocketTransport struct {
	fd int
	ip string

	mu      sync.Mutex
	pending *queue.Queue // []byte chunks the kernel has not accepted yet
	headOff int          // bytes of the head chunk already written
}

// New wraps fd, switching it to non-blocking mode.
func New(fd int, ip string) (*SocketTransport, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, os.NewSyscallError("set nonblock", err)
	}
	return &SocketTransport{
		fd:      fd,
		ip:      ip,
		pending: queue.New(),
	}, nil
}

// Socketpair returns two connected transports. Handy for loopback plumbing
// and tests.
func Socketpair() (*SocketTransport, *SocketTransport, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, os.NewSyscallError("socketpair", err)
	}
	a, err := New(fds[0], "local")
	if err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return nil, nil, err
	}
	b, err := New(fds[1], "local")
	if err != nil {
		a.Close()
		unix.Close(fds[1])
		return nil, nil, err
	}
	return a, b, nil
}

func (t *SocketTransport) Fd() int {
	return t.fd
}

func (t *SocketTransport) Ip() string {
	return t.ip
}

// Read drains the socket until the kernel would block. io.EOF means the peer
// closed and nothing was buffered.
func (t *SocketTransport) Read() ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 4096)

	for {
		n, err := unix.Read(t.fd, chunk)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			return nil, os.NewSyscallError("read", err)
		}
		if n == 0 {
			if buf.Len() == 0 {
				return nil, io.EOF
			}
			break
		}
		buf.Write(chunk[:n])
	}

	return buf.Bytes(), nil
}

// Write tries the kernel first and spills the remainder into the pending
// queue. It never blocks.
func (t *SocketTransport) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending.Length() > 0 {
		// keep ordering: everything goes behind the queued chunks
		t.pending.Add(append([]byte(nil), data...))
		return nil
	}

	n, err := unix.Write(t.fd, data)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			t.pending.Add(append([]byte(nil), data...))
			return nil
		}
		return os.NewSyscallError("write", err)
	}
	if n < len(data) {
		t.pending.Add(append([]byte(nil), data[n:]...))
	}

	return nil
}

// Flush retries the pending queue. It reports true once the queue emptied,
// false when the kernel is still pushing back.
func (t *SocketTransport) Flush() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for t.pending.Length() > 0 {
		chunk := t.pending.Peek().([]byte)[t.headOff:]

		n, err := unix.Write(t.fd, chunk)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return false, nil
			}
			return false, os.NewSyscallError("write", err)
		}
		if n < len(chunk) {
			t.headOff += n
			return false, nil
		}

		t.headOff = 0
		t.pending.Remove()
	}

	return true, nil
}

// Pending reports whether queued writes remain.
func (t *SocketTransport) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending.Length() > 0
}

func (t *SocketTransport) Close() error {
	return unix.Close(t.fd)
}
