// Package hid builds boot-keyboard key reports from the key matrix.
package hid

import (
	"keypad-go/keyboard"
)

// ReportID is the keyboard report id on the HID interface.
const ReportID = 1

// MaxKeycodes is the boot-protocol rollover.
const MaxKeycodes = 6

// Indicator bits as reported by the host in the output report.
const (
	LEDNumLock    uint8 = 1 << 0
	LEDCapsLock   uint8 = 1 << 1
	LEDScrollLock uint8 = 1 << 2
	LEDCompose    uint8 = 1 << 3
	LEDKana       uint8 = 1 << 4

	LEDMask = LEDNumLock | LEDCapsLock | LEDScrollLock | LEDCompose | LEDKana
)

// Modifier bits in the report's first byte.
const (
	ModLeftCtrl   uint8 = 1 << 0
	ModLeftShift  uint8 = 1 << 1
	ModLeftAlt    uint8 = 1 << 2
	ModLeftGUI    uint8 = 1 << 3
	ModRightCtrl  uint8 = 1 << 4
	ModRightShift uint8 = 1 << 5
	ModRightAlt   uint8 = 1 << 6
	ModRightGUI   uint8 = 1 << 7
)

// Usage IDs the firmware cares about.
const (
	KeyNone       uint8 = 0x00
	KeyA          uint8 = 0x04
	Key1          uint8 = 0x1E
	Key2          uint8 = 0x1F
	Key3          uint8 = 0x20
	Key4          uint8 = 0x21
	Key5          uint8 = 0x22
	Key0          uint8 = 0x27
	KeyCapsLock   uint8 = 0x39
	KeyScrollLock uint8 = 0x47
	KeyNumLock    uint8 = 0x53
)

// Sender delivers one keyboard report to the host.
type Sender interface {
	SendReport(reportID, modifiers uint8, keycodes [MaxKeycodes]uint8)
}

// Report is one keyboard report body.
type Report struct {
	Modifiers uint8
	Keycodes  [MaxKeycodes]uint8
}

// Build collects keycodes of held keys in press order (first six with a
// non-zero keycode) and ORs their modifiers.
func Build(m *keyboard.Matrix) Report {
	var r Report
	n := 0
	for id := range m.Pressing() {
		k := m.Key(id)
		if k == nil {
			continue
		}
		if k.Keycode != KeyNone && n < MaxKeycodes {
			r.Keycodes[n] = k.Keycode
			n++
		}
		r.Modifiers |= k.Modifiers
	}
	return r
}

// Reporter sends a report whenever it differs from the last one sent.
// While blocked it reports an empty keyboard.
type Reporter struct {
	out     Sender
	last    Report
	blocked bool
}

func NewReporter(out Sender) *Reporter { return &Reporter{out: out} }

// SetBlocked gates live key state out of the reports (capture mode).
func (r *Reporter) SetBlocked(v bool) { r.blocked = v }

// Blocked reports the capture gate.
func (r *Reporter) Blocked() bool { return r.blocked }

// TransmitOnce builds the current report and sends it if it changed.
// It reports whether a report was sent.
func (r *Reporter) TransmitOnce(m *keyboard.Matrix) bool {
	var next Report
	if !r.blocked {
		next = Build(m)
	}
	if next == r.last {
		return false
	}
	r.last = next
	r.out.SendReport(ReportID, next.Modifiers, next.Keycodes)
	return true
}
