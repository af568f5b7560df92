package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"keypad-go/protocol"
)

var errTimeout = errors.New("timed out waiting for the keypad")

// client speaks the configuration protocol over a byte stream.
type client struct {
	w       io.Writer
	frames  chan protocol.Message
	errs    chan error
	timeout time.Duration
}

func newClient(rw io.ReadWriter, timeout time.Duration) *client {
	c := &client{
		w:       rw,
		frames:  make(chan protocol.Message, 64),
		errs:    make(chan error, 1),
		timeout: timeout,
	}
	go c.readLoop(rw)
	return c
}

func (c *client) readLoop(r io.Reader) {
	var d protocol.Decoder
	var m protocol.Message
	for {
		tail := d.Tail()
		if len(tail) == 0 {
			// A full buffer with no frame in it: start over.
			d.Reset()
			tail = d.Tail()
		}
		n, err := r.Read(tail)
		d.Commit(n)
		for d.Next(&m) {
			c.frames <- m
		}
		if err != nil {
			c.errs <- err
			return
		}
	}
}

func (c *client) send(op protocol.Opcode, data []byte) error {
	m := protocol.New(op, data)
	_, err := c.w.Write(protocol.AppendFrame(nil, &m))
	return err
}

// next waits for the next frame.
func (c *client) next(timeout time.Duration) (protocol.Message, error) {
	select {
	case m := <-c.frames:
		return m, nil
	case err := <-c.errs:
		return protocol.Message{}, err
	case <-time.After(timeout):
		return protocol.Message{}, errTimeout
	}
}

// request sends op and waits for a reply with opcode want. Key reports that
// arrive in between are skipped.
func (c *client) request(op protocol.Opcode, data []byte, want protocol.Opcode) (protocol.Message, error) {
	if err := c.send(op, data); err != nil {
		return protocol.Message{}, fmt.Errorf("send %v: %w", op, err)
	}
	deadline := time.Now().Add(c.timeout)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return protocol.Message{}, fmt.Errorf("%v: %w", op, errTimeout)
		}
		m, err := c.next(left)
		if err != nil {
			return protocol.Message{}, fmt.Errorf("%v: %w", op, err)
		}
		if m.Opcode == want {
			return m, nil
		}
	}
}
