//go:build linux || darwin
// +build linux darwin

package main

import (
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fzft/go-mock-ros/config"
	"github.com/fzft/go-mock-ros/log"
	"github.com/fzft/go-mock-ros/pollset"
	"github.com/fzft/go-mock-ros/transport"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Server is a minimal echo node: one PollSet drives the listener and every
// connection, the same way a middleware client multiplexes its transports.
type Server struct {
	cfg *config.Config

	ps     *pollset.PollSet
	ln     net.Listener
	lnFile *os.File
	lnFd   int

	mu    sync.Mutex
	conns map[int]*transport.SocketTransport

	quit chan struct{}
	done chan struct{}
}

func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:   cfg,
		conns: make(map[int]*transport.SocketTransport),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (s *Server) Run() error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	ln, err := net.Listen("tcp", s.cfg.Node.Addr)
	if err != nil {
		log.Logger.Error("listen error", zap.Error(err))
		return err
	}
	s.ln = ln

	f, err := ln.(*net.TCPListener).File()
	if err != nil {
		log.Logger.Error("Failed to get listener fd", zap.Error(err))
		return err
	}
	s.lnFile = f
	s.lnFd = int(f.Fd())
	// File() hands back a blocking duplicate
	if err := unix.SetNonblock(s.lnFd, true); err != nil {
		return os.NewSyscallError("set nonblock", err)
	}

	s.ps = pollset.New()
	s.ps.AddSocket(s.lnFd, s.onListenerEvents, nil)
	s.ps.AddEvents(s.lnFd, pollset.EventRead)

	go s.loop()

	log.Logger.Info("listening", zap.String("addr", s.cfg.Node.Addr))

	<-signals
	log.Logger.Info("signal received, shutting down")

	close(s.quit)
	s.ps.Signal()
	<-s.done

	return s.closeAll()
}

// loop is the poller goroutine; nothing else calls Update.
func (s *Server) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		default:
			s.ps.Update(s.cfg.Node.PollTimeoutMs)
		}
	}
}

func (s *Server) onListenerEvents(events pollset.EventMask) {
	if events&pollset.EventRead == 0 {
		return
	}
	for {
		connFd, sa, err := unix.Accept(s.lnFd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			log.Logger.Error("accept error", zap.Error(err))
			return
		}

		s.mu.Lock()
		full := len(s.conns) >= s.cfg.Node.MaxClients
		s.mu.Unlock()
		if full {
			log.Logger.Warn("max clients reached, dropping connection", zap.Int("fd", connFd))
			unix.Close(connFd)
			continue
		}

		t, err := transport.New(connFd, sockaddrIp(sa))
		if err != nil {
			log.Logger.Error("transport setup error", zap.Error(err))
			unix.Close(connFd)
			continue
		}

		s.mu.Lock()
		s.conns[connFd] = t
		s.mu.Unlock()

		s.ps.AddSocket(connFd, func(events pollset.EventMask) {
			s.onSocketEvents(t, events)
		}, t)
		s.ps.AddEvents(connFd, pollset.EventRead)

		log.Logger.Debug("new connection", zap.Int("fd", connFd), zap.String("ip", t.Ip()))
	}
}

func sockaddrIp(sa unix.Sockaddr) string {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IPv4(addr.Addr[0], addr.Addr[1], addr.Addr[2], addr.Addr[3]).String()
	case *unix.SockaddrInet6:
		return net.IP(addr.Addr[:]).String()
	default:
		return ""
	}
}

// onSocketEvents echoes reads back and retires the WRITE interest once the
// pending queue empties.
func (s *Server) onSocketEvents(t *transport.SocketTransport, events pollset.EventMask) {
	if events&(pollset.EventErr|pollset.EventHup|pollset.EventNval) != 0 {
		s.dropConn(t)
		return
	}

	if events&pollset.EventRead != 0 {
		data, err := t.Read()
		if err != nil {
			if err != io.EOF {
				log.Logger.Error("read error", zap.Int("fd", t.Fd()), zap.Error(err))
			}
			s.dropConn(t)
			return
		}
		if len(data) > 0 {
			wasPending := t.Pending()
			if err := t.Write(data); err != nil {
				log.Logger.Error("write error", zap.Int("fd", t.Fd()), zap.Error(err))
				s.dropConn(t)
				return
			}
			if !wasPending && t.Pending() {
				s.ps.AddEvents(t.Fd(), pollset.EventWrite)
			}
		}
	}

	if events&pollset.EventWrite != 0 {
		done, err := t.Flush()
		if err != nil {
			log.Logger.Error("flush error", zap.Int("fd", t.Fd()), zap.Error(err))
			s.dropConn(t)
			return
		}
		if done {
			s.ps.DelEvents(t.Fd(), pollset.EventWrite)
		}
	}
}

func (s *Server) dropConn(t *transport.SocketTransport) {
	fd := t.Fd()
	s.ps.DelSocket(fd)

	s.mu.Lock()
	delete(s.conns, fd)
	s.mu.Unlock()

	if err := t.Close(); err != nil {
		log.Logger.Debug("close error", zap.Int("fd", fd), zap.Error(err))
	}
	log.Logger.Debug("connection closed", zap.Int("fd", fd))
}

// closeAll order: listener, connections, poll set.
func (s *Server) closeAll() error {
	var errs shutdownError

	s.ps.DelSocket(s.lnFd)
	errs.failf(s.lnFile.Close(), "close listener fd")
	errs.failf(s.ln.Close(), "close listener")

	s.mu.Lock()
	conns := make([]*transport.SocketTransport, 0, len(s.conns))
	for _, t := range s.conns {
		conns = append(conns, t)
	}
	s.conns = make(map[int]*transport.SocketTransport)
	s.mu.Unlock()

	for _, t := range conns {
		s.ps.DelSocket(t.Fd())
		errs.failf(t.Close(), "close conn fd %d", t.Fd())
	}

	errs.failf(s.ps.Close(), "close poll set")

	if len(errs) > 0 {
		return errs
	}
	return nil
}
