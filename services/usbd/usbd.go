// Package usbd holds the USB device state written from USB callbacks and read
// by the core loops: mount state, the reset-required edge and the host
// keyboard indicator bits.
//
// Each field has a single writer (the USB stack context) and is read with
// atomics, so no lock is involved.
package usbd

import (
	"sync/atomic"

	"keypad-go/services/hid"
)

// Signals is the read side consumed by the orchestrator.
type Signals interface {
	Mounted() bool
	// TakeReset reports a pending reset-required edge and clears it.
	TakeReset() bool
	Indicators() uint8
}

// State implements Signals and exposes the callback-side setters.
type State struct {
	mounted    atomic.Bool
	resetReq   atomic.Bool
	indicators atomic.Uint32
}

var _ Signals = (*State)(nil)

// SetMounted records the mount state. Reset-required is edge-based: it is
// raised only on an unmounted to mounted transition, so a caller polling the
// mount flag every iteration does not reset the channel repeatedly.
func (s *State) SetMounted(v bool) {
	if v && !s.mounted.Load() {
		s.resetReq.Store(true)
	}
	s.mounted.Store(v)
}

// SetIndicators stores host LED bits from an output report.
func (s *State) SetIndicators(bits uint8) {
	s.indicators.Store(uint32(bits & hid.LEDMask))
}

func (s *State) Mounted() bool { return s.mounted.Load() }

func (s *State) TakeReset() bool { return s.resetReq.Swap(false) }

func (s *State) Indicators() uint8 { return uint8(s.indicators.Load()) }
