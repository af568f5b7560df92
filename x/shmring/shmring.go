// Package shmring provides a fixed-capacity single-producer, single-consumer
// byte ring. Writes beyond capacity are truncated; nothing blocks.
package shmring

import "sync/atomic"

// Ring is a single-producer, single-consumer byte ring.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)
}

// New allocates a ring of the given power-of-two size (>= 2).
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("shmring: size must be power of two >= 2")
	}
	return &Ring{
		buf:  make([]byte, size),
		mask: uint32(size - 1),
	}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

// Cap reports the ring capacity in bytes.
func (r *Ring) Cap() int { return len(r.buf) }

// Space reports how many bytes WriteFrom would accept now.
func (r *Ring) Space() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	return int(r.size() - (wr - rd))
}

// Available reports how many bytes are queued for the consumer.
func (r *Ring) Available() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	return int(wr - rd)
}

// WriteFrom copies as much of src as fits and returns the count.
func (r *Ring) WriteFrom(src []byte) (n int) {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	space := int(r.size() - (wr - rd))
	if space <= 0 {
		return 0
	}
	n = min(len(src), space)

	wrIdx := wr & r.mask
	first := min(int(r.size()-wrIdx), n)
	copy(r.buf[wrIdx:wrIdx+uint32(first)], src[:first])
	if second := n - first; second > 0 {
		copy(r.buf[:second], src[first:n])
	}
	r.wr.Store(wr + uint32(n)) // release
	return n
}

// Peek copies up to len(dst) queued bytes without consuming them.
func (r *Ring) Peek(dst []byte) (n int) {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	avail := int(wr - rd)
	if avail <= 0 {
		return 0
	}
	n = min(len(dst), avail)

	rdIdx := rd & r.mask
	first := min(int(r.size()-rdIdx), n)
	copy(dst[:first], r.buf[rdIdx:rdIdx+uint32(first)])
	if second := n - first; second > 0 {
		copy(dst[first:n], r.buf[:second])
	}
	return n
}

// Discard drops up to n queued bytes and returns how many were dropped.
func (r *Ring) Discard(n int) int {
	if n <= 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	n = min(n, int(wr-rd))
	r.rd.Store(rd + uint32(n)) // release
	return n
}

// ReadInto consumes up to len(dst) queued bytes.
func (r *Ring) ReadInto(dst []byte) int {
	return r.Discard(r.Peek(dst))
}

// Reset drops everything queued. Only the consumer may call it.
func (r *Ring) Reset() {
	r.rd.Store(r.wr.Load())
}
