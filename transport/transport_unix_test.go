//go:build linux || darwin
// +build linux darwin

package transport

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadWriteRoundtrip(t *testing.T) {
	a, b, err := Socketpair()
	assert.NoError(t, err)
	defer a.Close()
	defer b.Close()

	assert.NoError(t, a.Write([]byte("hello")))

	data, err := b.Read()
	assert.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	// nothing buffered now; a non-blocking read comes back empty
	data, err = b.Read()
	assert.NoError(t, err)
	assert.Empty(t, data)
}

func TestReadEOF(t *testing.T) {
	a, b, err := Socketpair()
	assert.NoError(t, err)
	defer b.Close()

	assert.NoError(t, a.Close())

	_, err = b.Read()
	assert.Equal(t, io.EOF, err)
}

func TestPendingSpillAndFlush(t *testing.T) {
	a, b, err := Socketpair()
	assert.NoError(t, err)
	defer a.Close()
	defer b.Close()

	// stuff the socket until the kernel pushes back
	chunk := bytes.Repeat([]byte{0xab}, 64*1024)
	sent := 0
	for i := 0; i < 128 && !a.Pending(); i++ {
		assert.NoError(t, a.Write(chunk))
		sent += len(chunk)
	}
	assert.True(t, a.Pending(), "kernel never pushed back; cannot exercise the queue")

	// drain the peer and flush until the queue empties
	received := 0
	for i := 0; i < 4096; i++ {
		data, err := b.Read()
		assert.NoError(t, err)
		received += len(data)

		done, err := a.Flush()
		assert.NoError(t, err)
		if done && !a.Pending() {
			break
		}
	}

	assert.False(t, a.Pending())

	data, err := b.Read()
	assert.NoError(t, err)
	received += len(data)

	assert.Equal(t, sent, received)
}

func TestWriteOrderPreservedAcrossSpill(t *testing.T) {
	a, b, err := Socketpair()
	assert.NoError(t, err)
	defer a.Close()
	defer b.Close()

	big := bytes.Repeat([]byte{0x01}, 256*1024)
	assert.NoError(t, a.Write(big))
	assert.NoError(t, a.Write([]byte{0x02, 0x03}))

	var got bytes.Buffer
	for i := 0; i < 4096 && got.Len() < len(big)+2; i++ {
		data, err := b.Read()
		assert.NoError(t, err)
		got.Write(data)
		if _, err := a.Flush(); err != nil {
			t.Fatalf("flush: %v", err)
		}
	}

	assert.Equal(t, len(big)+2, got.Len())
	tail := got.Bytes()[got.Len()-2:]
	assert.Equal(t, []byte{0x02, 0x03}, tail)
}
