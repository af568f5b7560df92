// Package platform provides the hardware collaborators for the keypad: the
// real RP2040 board under the rp2040 build tag and an in-process simulator
// everywhere else.
package platform

import (
	"keypad-go/services/leds"
)

// Matrix wiring.
const (
	Rows = 2
	Cols = 3
)

// Layout maps keys 00,01,02,10,11,12 and the NumLock/CapsLock indicators
// onto the 74HC595 outputs.
var Layout = leds.Layout{
	KeyLEDs:  []uint8{7, 6, 1, 4, 3, 5},
	NumLock:  0,
	CapsLock: 2,
}

// FlashSector is the erase granularity of the configuration flash.
const FlashSector = 4 * 1024
