//go:build linux || darwin
// +build linux darwin

package main

import (
	"testing"

	"github.com/fzft/go-mock-ros/config"
	"github.com/fzft/go-mock-ros/pollset"
	"github.com/fzft/go-mock-ros/transport"
	"github.com/stretchr/testify/assert"
)

// wire hooks one end of a socketpair into the server's poll set the way
// onListenerEvents does for accepted connections.
func wire(t *testing.T, s *Server) (*transport.SocketTransport, *transport.SocketTransport) {
	t.Helper()
	a, b, err := transport.Socketpair()
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}

	s.conns[a.Fd()] = a
	assert.True(t, s.ps.AddSocket(a.Fd(), func(events pollset.EventMask) {
		s.onSocketEvents(a, events)
	}, a))
	assert.True(t, s.ps.AddEvents(a.Fd(), pollset.EventRead))

	return a, b
}

func TestEchoRoundtrip(t *testing.T) {
	s := NewServer(config.Default())
	s.ps = pollset.New()
	defer s.ps.Close()

	a, b := wire(t, s)
	defer a.Close()
	defer b.Close()

	assert.NoError(t, b.Write([]byte("ping")))

	s.ps.Update(1000)

	data, err := b.Read()
	assert.NoError(t, err)
	assert.Equal(t, []byte("ping"), data)
}

func TestPeerCloseDropsConnection(t *testing.T) {
	s := NewServer(config.Default())
	s.ps = pollset.New()
	defer s.ps.Close()

	_, b := wire(t, s)

	assert.NoError(t, b.Close())

	s.ps.Update(1000)

	s.mu.Lock()
	n := len(s.conns)
	s.mu.Unlock()
	assert.Zero(t, n, "hung-up connection should have been dropped")
}
