package store

import "keypad-go/x/mathx"

// SaveDelay is the quiet window, in milliseconds, between the last save
// request and the flash write.
const SaveDelay uint32 = 1000

// Policy debounces save requests. Owned by the primary core.
type Policy struct {
	pending bool
	stamp   uint32
}

// Reserve marks a save as pending and restarts the quiet window.
func (p *Policy) Reserve(now uint32) {
	p.pending = true
	p.stamp = now
}

// Pending reports whether a save is waiting for its window.
func (p *Policy) Pending() bool { return p.pending }

// Due reports whether the pending save should run now. A true result
// clears the request.
func (p *Policy) Due(now uint32) bool {
	if !p.pending || mathx.Elapsed(now, p.stamp) < SaveDelay {
		return false
	}
	p.pending = false
	p.stamp = now
	return true
}
