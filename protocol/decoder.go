package protocol

// Status is the outcome of one Decode attempt.
type Status uint8

const (
	// Incomplete means more bytes are needed; the buffer is untouched.
	Incomplete Status = iota
	// Invalid means the candidate frame failed validation and exactly one
	// leading byte was dropped. Call Decode again to re-frame.
	Invalid
	// OK means a frame was decoded and consumed.
	OK
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Invalid:
		return "invalid"
	default:
		return "incomplete"
	}
}

// BufferSize is the receive accumulation buffer size.
const BufferSize = 512

// Decoder accumulates received bytes and cuts frames from the front.
// It is not safe for concurrent use.
type Decoder struct {
	buf [BufferSize]byte
	n   int
}

// Space reports how many bytes Write would accept.
func (d *Decoder) Space() int { return len(d.buf) - d.n }

// Buffered reports how many bytes are waiting to be framed.
func (d *Decoder) Buffered() int { return d.n }

// Write appends as much of p as fits and returns the count.
func (d *Decoder) Write(p []byte) int {
	n := copy(d.buf[d.n:], p)
	d.n += n
	return n
}

// Tail exposes the free part of the buffer for a direct read; follow it
// with Commit.
func (d *Decoder) Tail() []byte { return d.buf[d.n:] }

// Commit marks n bytes written into Tail as received.
func (d *Decoder) Commit(n int) {
	if n > 0 {
		d.n = min(d.n+n, len(d.buf))
	}
}

// Reset drops everything buffered.
func (d *Decoder) Reset() { d.n = 0 }

// Decode tries to cut one frame from the front of the buffer into m.
func (d *Decoder) Decode(m *Message) Status {
	if d.n < Overhead {
		return Incomplete
	}
	length := int(d.buf[1])
	if length > MaxData {
		d.drop(1)
		return Invalid
	}
	total := Overhead + length
	if d.n < total {
		return Incomplete
	}

	var c Message
	c.Opcode = Opcode(d.buf[0])
	c.Length = uint8(length)
	copy(c.Data[:length], d.buf[2:2+length])
	c.Checksum = d.buf[2+length]

	if Checksum(&c) != c.Checksum {
		d.drop(1)
		return Invalid
	}

	*m = c
	d.drop(total)
	return OK
}

// Next decodes the first valid frame, resynchronising past garbage one byte
// at a time. It returns false when no complete valid frame is buffered.
func (d *Decoder) Next(m *Message) bool {
	for {
		switch d.Decode(m) {
		case OK:
			return true
		case Incomplete:
			return false
		}
	}
}

func (d *Decoder) drop(n int) {
	copy(d.buf[:], d.buf[n:d.n])
	d.n -= n
}
