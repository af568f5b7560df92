// Package leds drives the key and status LEDs.
//
// The primary core derives which LEDs should be lit (Derive) and publishes
// the result through a State; the secondary core applies it to the panel and
// flushes the shift register. All LEDs are active-low.
package leds

import (
	"sync/atomic"

	"keypad-go/keyboard"
	"keypad-go/services/hid"
	"keypad-go/types"
)

// Shifter latches a bit mask onto the LED driver (74HC595 chain).
type Shifter interface {
	WriteMask(mask uint32)
}

// Pin is a status LED on a plain GPIO.
type Pin interface {
	Set(level bool)
}

// Status LEDs live above the shift-register bits in a lit mask.
const (
	StatusMount   uint32 = 1 << 30
	StatusCapture uint32 = 1 << 31
	StatusMask           = StatusMount | StatusCapture

	shiftMask = ^StatusMask
)

// Frame coalesces bit writes and only shifts out a changed mask.
type Frame struct {
	out    Shifter
	bits   uint32
	prev   uint32
	primed bool
}

// Set sets bit n to v.
func (f *Frame) Set(n int, v bool) {
	if n < 0 || n >= 30 {
		return
	}
	if v {
		f.bits |= 1 << n
	} else {
		f.bits &^= 1 << n
	}
}

// Bit reads bit n.
func (f *Frame) Bit(n int) bool { return n >= 0 && n < 32 && f.bits&(1<<n) != 0 }

// Flush writes the mask if it changed since the last flush (or never flushed).
func (f *Frame) Flush() bool {
	if f.primed && f.prev == f.bits {
		return false
	}
	f.primed = true
	f.prev = f.bits
	f.out.WriteMask(f.bits)
	return true
}

// Layout maps keys and host indicators onto shift-register bits.
type Layout struct {
	KeyLEDs  []uint8 // indexed by key id
	NumLock  int     // -1 when absent
	CapsLock int     // -1 when absent
}

// KeyLit reports whether a key's LED should be lit under its control mode.
func KeyLit(k *keyboard.Key) bool {
	if k == nil {
		return true
	}
	switch k.Mode {
	case types.ModeNone:
		return k.Level != types.LevelLow
	case types.ModeInvert:
		return k.Level != types.LevelHigh
	case types.ModeToggleInvert:
		return k.Toggle == 0
	case types.ModeToggle, types.ModeRemoteControl:
		return k.Toggle != 0
	default:
		// Unknown modes written by a host behave like Toggle.
		return k.Toggle != 0
	}
}

// Derive computes the lit mask for the current key and USB state.
func (l Layout) Derive(m *keyboard.Matrix, mounted, blocked bool, indicators uint8) uint32 {
	var lit uint32
	for i, bit := range l.KeyLEDs {
		if KeyLit(m.Key(keyboard.KeyID(i))) {
			lit |= 1 << bit
		}
	}
	if l.NumLock >= 0 && indicators&hid.LEDNumLock != 0 {
		lit |= 1 << l.NumLock
	}
	if l.CapsLock >= 0 && indicators&hid.LEDCapsLock != 0 {
		lit |= 1 << l.CapsLock
	}
	if mounted {
		lit |= StatusMount
	}
	if blocked {
		lit |= StatusCapture
	}
	return lit & (shiftMask | StatusMask)
}

// State carries a lit mask from the primary to the secondary core.
type State struct{ v atomic.Uint32 }

func (s *State) Store(lit uint32) { s.v.Store(lit) }
func (s *State) Load() uint32     { return s.v.Load() }

// Panel owns the LED hardware. Used from the secondary core only.
type Panel struct {
	frame   Frame
	mount   Pin
	capture Pin

	force     uint32
	forceMask uint32
}

// NewPanel wires the shift register and the two status pins.
func NewPanel(sh Shifter, mount, capture Pin) *Panel {
	return &Panel{frame: Frame{out: sh}, mount: mount, capture: capture}
}

// Override pins the LEDs in mask to the lit state given in lit, on top of
// whatever Apply is asked to show.
func (p *Panel) Override(mask, lit uint32) {
	p.forceMask |= mask
	p.force = (p.force &^ mask) | (lit & mask)
}

// Release drops the override for the LEDs in mask.
func (p *Panel) Release(mask uint32) {
	p.forceMask &^= mask
	p.force &^= mask
}

// Apply shows lit (after overrides) and flushes the shift register.
func (p *Panel) Apply(lit uint32) {
	eff := (lit &^ p.forceMask) | (p.force & p.forceMask)

	for n := 0; n < 30; n++ {
		p.frame.Set(n, eff&(1<<n) == 0) // active-low
	}
	if p.mount != nil {
		p.mount.Set(eff&StatusMount == 0)
	}
	if p.capture != nil {
		p.capture.Set(eff&StatusCapture == 0)
	}
	p.frame.Flush()
}
