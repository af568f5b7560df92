// Package serial runs the configuration protocol over a byte transport
// without ever blocking the main loop.
package serial

import (
	"keypad-go/protocol"
	"keypad-go/x/shmring"
)

// Port is the USB serial channel. Both calls are non-blocking and report how
// many bytes were moved.
type Port interface {
	Receive(p []byte) int
	Transmit(p []byte) int
}

// TxSize is the outbound ring capacity.
const TxSize = 512

// txChunk bounds one Transmit call.
const txChunk = 2 * protocol.MaxFrame

// Channel frames protocol messages over a Port. Owned by the primary core.
type Channel struct {
	port Port
	rx   protocol.Decoder
	tx   *shmring.Ring

	scratch [txChunk]byte
	frame   []byte
	dropped uint32
}

// New binds a channel to port.
func New(port Port) *Channel {
	return &Channel{
		port:  port,
		tx:    shmring.New(TxSize),
		frame: make([]byte, 0, protocol.MaxFrame),
	}
}

// UpdateOnce pulls what the port has (up to free buffer space) and pushes
// as much queued output as the port accepts.
func (c *Channel) UpdateOnce() {
	c.receiveOnce()
	c.transmitOnce()
}

func (c *Channel) receiveOnce() {
	tail := c.rx.Tail()
	if len(tail) == 0 {
		return
	}
	c.rx.Commit(c.port.Receive(tail))
}

func (c *Channel) transmitOnce() {
	n := c.tx.Peek(c.scratch[:])
	if n == 0 {
		return
	}
	sent := c.port.Transmit(c.scratch[:n])
	c.tx.Discard(sent)
}

// Reset discards buffered input and queued output, e.g. after the host
// reconnects.
func (c *Channel) Reset() {
	c.rx.Reset()
	c.tx.Reset()
}

// Write queues raw bytes, truncating at ring capacity.
func (c *Channel) Write(p []byte) int {
	n := c.tx.WriteFrom(p)
	if n < len(p) {
		c.dropped += uint32(len(p) - n)
	}
	return n
}

// WriteMessage queues one frame with a fresh checksum. It reports false when
// the frame did not fit completely.
func (c *Channel) WriteMessage(m *protocol.Message) bool {
	c.transmitOnce()
	c.frame = protocol.AppendFrame(c.frame[:0], m)
	return c.Write(c.frame) == len(c.frame)
}

// Read returns the next valid message, skipping corrupt bytes.
func (c *Channel) Read(m *protocol.Message) bool {
	return c.rx.Next(m)
}

// Pending reports queued output bytes.
func (c *Channel) Pending() int { return c.tx.Available() }

// Dropped reports output bytes lost to a full ring since boot.
func (c *Channel) Dropped() uint32 { return c.dropped }
