//go:build linux || darwin
// +build linux darwin

package pollset

import (
	"runtime"
	"sort"
	"sync"

	"github.com/fzft/go-mock-ros/log"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// UpdateFunc is a socket's readiness callback. It runs on the goroutine that
// called Update, with no PollSet lock held, so it may call back into the set.
type UpdateFunc func(events EventMask)

type socketInfo struct {
	fd        int
	gen       uint64 // distinguishes registrations that reuse an fd number
	events    EventMask
	fn        UpdateFunc
	transport any
}

// PollSet multiplexes readiness notifications for a set of descriptors that
// other goroutines may grow, shrink and retune at any time. One goroutine
// drives Update; mutators poke the signal pipe so a blocked Update re-reads
// the registry promptly.
//
// At most one goroutine may be inside Update at a time. Everything else is
// safe to call concurrently.
type PollSet struct {
	mu      sync.Mutex
	sockets map[int]*socketInfo
	changed bool

	nextGen uint64

	// consumed only by the Update goroutine; ufdGens[i] stamps the
	// registration ufds[i] was built from
	ufds    []unix.PollFd
	ufdGens []uint64

	signalMu sync.Mutex
	pipeR    int
	pipeW    int
}

// New opens the wakeup pipe and registers its read end for READ. Pipe
// creation failure is fatal: without a wakeup channel the set cannot work.
func New() *PollSet {
	ps := &PollSet{
		sockets: make(map[int]*socketInfo),
		pipeR:   -1,
		pipeW:   -1,
	}

	r, w, err := newSignalPipe()
	if err != nil {
		log.Logger.Fatal("Failed to create signal pipe", zap.Error(err))
	}
	ps.pipeR = r
	ps.pipeW = w

	ps.AddSocket(ps.pipeR, ps.onLocalPipeEvents, nil)
	ps.AddEvents(ps.pipeR, EventRead)

	return ps
}

// AddSocket registers fd with an empty interest mask. The transport handle
// rides along untouched; Update keeps it alive while the callback runs.
// Returns false when fd is negative or already registered; the original
// registration wins.
func (ps *PollSet) AddSocket(fd int, fn UpdateFunc, transport any) bool {
	if fd < 0 {
		return false
	}

	ps.mu.Lock()
	if _, ok := ps.sockets[fd]; ok {
		ps.mu.Unlock()
		log.Logger.Debug("Tried to add duplicate fd", zap.Int("fd", fd))
		return false
	}
	ps.nextGen++
	ps.sockets[fd] = &socketInfo{fd: fd, gen: ps.nextGen, fn: fn, transport: transport}
	ps.changed = true
	ps.mu.Unlock()

	ps.Signal()

	return true
}

// DelSocket removes fd from the set. A dispatch already in flight for fd is
// suppressed by the re-lookup in Update. Returns false when fd is negative
// or not being tracked.
func (ps *PollSet) DelSocket(fd int) bool {
	if fd < 0 {
		return false
	}

	ps.mu.Lock()
	if _, ok := ps.sockets[fd]; !ok {
		ps.mu.Unlock()
		log.Logger.Debug("Tried to delete fd which is not being tracked", zap.Int("fd", fd))
		return false
	}
	delete(ps.sockets, fd)
	ps.changed = true
	ps.mu.Unlock()

	ps.Signal()

	return true
}

// AddEvents widens fd's interest mask.
func (ps *PollSet) AddEvents(fd int, events EventMask) bool {
	ps.mu.Lock()
	info, ok := ps.sockets[fd]
	if !ok {
		ps.mu.Unlock()
		log.Logger.Debug("Tried to add events to fd which is not being tracked",
			zap.Int("fd", fd), zap.Int16("events", int16(events)))
		return false
	}
	info.events |= events
	// the native array carries the interest, so it is stale now
	ps.changed = true
	ps.mu.Unlock()

	ps.Signal()

	return true
}

// DelEvents narrows fd's interest mask.
func (ps *PollSet) DelEvents(fd int, events EventMask) bool {
	ps.mu.Lock()
	info, ok := ps.sockets[fd]
	if !ok {
		ps.mu.Unlock()
		log.Logger.Debug("Tried to delete events from fd which is not being tracked",
			zap.Int("fd", fd), zap.Int16("events", int16(events)))
		return false
	}
	info.events &^= events
	ps.changed = true
	ps.mu.Unlock()

	ps.Signal()

	return true
}

// Signal wakes a blocked Update. The wakeup is advisory: when another
// signaller holds the lock, or the pipe is full, a wakeup byte is already
// pending and this call can do nothing.
func (ps *PollSet) Signal() {
	if !ps.signalMu.TryLock() {
		return
	}
	defer ps.signalMu.Unlock()

	// write errors are ignored; the next mutation or timeout retries
	b := [1]byte{}
	unix.Write(ps.pipeW, b[:])
}

// Update blocks for at most timeoutMillis (-1 blocks indefinitely) waiting
// for readiness on the registered descriptors, then dispatches callbacks for
// every descriptor the primitive reported. It returns when the primitive
// returns, fired or not.
func (ps *PollSet) Update(timeoutMillis int) {
	ps.createNativePollSet()

	n, err := waitReady(ps.ufds, timeoutMillis)
	if err != nil {
		// a signal interrupt is not an error
		if !isEINTR(err) {
			log.Logger.Error("poll failed", zap.Error(err))
		}
		return
	}
	if n == 0 {
		return
	}

	for i := range ps.ufds {
		revents := fromPollEvents(ps.ufds[i].Revents)
		if revents == 0 {
			continue
		}

		fd := int(ps.ufds[i].Fd)

		var (
			fn        UpdateFunc
			transport any
			events    EventMask
		)
		ps.mu.Lock()
		info, ok := ps.sockets[fd]
		if !ok || info.gen != ps.ufdGens[i] {
			// deleted since the snapshot was taken, or the fd number was
			// reused by a newer registration the snapshot knows nothing
			// about; either way this readiness belongs to nobody
			ps.mu.Unlock()
			ps.ufds[i].Revents = 0
			continue
		}
		// copy out so a concurrent DelSocket cannot pull these from under
		// the callback
		fn = info.fn
		transport = info.transport
		events = info.events
		ps.mu.Unlock()

		if fired := revents & (events | conditionEvents); fn != nil && fired != 0 {
			fn(fired)
		}
		runtime.KeepAlive(transport)

		ps.ufds[i].Revents = 0
	}
}

// createNativePollSet rebuilds the pollfd array from the registry when a
// mutation has invalidated the cached one.
func (ps *PollSet) createNativePollSet() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.changed {
		return
	}

	fds := make([]int, 0, len(ps.sockets))
	for fd := range ps.sockets {
		fds = append(fds, fd)
	}
	sort.Ints(fds)

	if cap(ps.ufds) < len(fds) {
		ps.ufds = make([]unix.PollFd, 0, len(fds))
		ps.ufdGens = make([]uint64, 0, len(fds))
	}
	ps.ufds = ps.ufds[:0]
	ps.ufdGens = ps.ufdGens[:0]
	for _, fd := range fds {
		info := ps.sockets[fd]
		ps.ufds = append(ps.ufds, unix.PollFd{
			Fd:     int32(fd),
			Events: toPollEvents(info.events),
		})
		ps.ufdGens = append(ps.ufdGens, info.gen)
	}
	ps.changed = false
}

// onLocalPipeEvents keeps the wakeup pipe empty so later signals land on an
// empty pipe.
func (ps *PollSet) onLocalPipeEvents(events EventMask) {
	if events&EventRead == 0 {
		return
	}
	var b [1]byte
	for {
		n, err := unix.Read(ps.pipeR, b[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close releases the wakeup pipe. No calls on the set may follow; tracked
// registrations are dropped without notification.
func (ps *PollSet) Close() error {
	err := unix.Close(ps.pipeR)
	if werr := unix.Close(ps.pipeW); err == nil {
		err = werr
	}
	ps.pipeR = -1
	ps.pipeW = -1
	return err
}
