package leds

import (
	"testing"

	"keypad-go/keyboard"
	"keypad-go/services/hid"
	"keypad-go/types"
)

type fakeShifter struct {
	writes int
	mask   uint32
}

func (f *fakeShifter) WriteMask(m uint32) { f.writes++; f.mask = m }

type fakePin struct{ level bool }

func (p *fakePin) Set(v bool) { p.level = v }

func TestFrameFlushOnlyOnChange(t *testing.T) {
	sh := &fakeShifter{}
	f := Frame{out: sh}

	if !f.Flush() {
		t.Fatal("first flush should always write")
	}
	if f.Flush() {
		t.Fatal("unchanged flush wrote")
	}
	f.Set(3, true)
	if !f.Flush() || sh.mask != 1<<3 {
		t.Fatalf("mask = %#x", sh.mask)
	}
	f.Set(3, true)
	if f.Flush() {
		t.Fatal("same bit rewrite flushed")
	}
	if sh.writes != 2 {
		t.Fatalf("writes = %d", sh.writes)
	}
}

func TestKeyLitPerMode(t *testing.T) {
	cases := []struct {
		mode   types.ControlMode
		level  types.Level
		toggle uint8
		want   bool
	}{
		{types.ModeNone, types.LevelLow, 0, false},
		{types.ModeNone, types.LevelHigh, 0, true},
		{types.ModeNone, types.LevelFalling, 0, true},
		{types.ModeInvert, types.LevelHigh, 0, false},
		{types.ModeInvert, types.LevelLow, 0, true},
		{types.ModeToggle, types.LevelLow, 1, true},
		{types.ModeToggle, types.LevelHigh, 0, false},
		{types.ModeToggleInvert, types.LevelLow, 0, true},
		{types.ModeToggleInvert, types.LevelLow, 1, false},
		{types.ModeRemoteControl, types.LevelLow, 1, true},
		{types.ControlMode(42), types.LevelLow, 1, true},
	}
	for _, tc := range cases {
		k := &keyboard.Key{Mode: tc.mode, Level: tc.level, Toggle: tc.toggle}
		if got := KeyLit(k); got != tc.want {
			t.Fatalf("%v/%v/%d: lit=%v want %v", tc.mode, tc.level, tc.toggle, got, tc.want)
		}
	}
	if !KeyLit(nil) {
		t.Fatal("missing key should be lit")
	}
}

func TestDeriveAndApply(t *testing.T) {
	m := keyboard.New(2, 3, nil)
	layout := Layout{KeyLEDs: []uint8{7, 6, 1, 4, 3, 5}, NumLock: 0, CapsLock: 2}

	m.Update(1, []uint8{0b001, 0}) // key 0 rising
	lit := layout.Derive(m, true, false, hid.LEDCapsLock)
	want := uint32(1<<7|1<<2) | StatusMount
	if lit != want {
		t.Fatalf("lit = %#x want %#x", lit, want)
	}

	sh := &fakeShifter{}
	mount, capture := &fakePin{}, &fakePin{}
	p := NewPanel(sh, mount, capture)
	p.Apply(lit)

	if sh.mask&(1<<7) != 0 || sh.mask&(1<<2) != 0 {
		t.Fatalf("lit LEDs must be driven low: %#x", sh.mask)
	}
	if sh.mask&(1<<6) == 0 {
		t.Fatalf("unlit LED must be driven high: %#x", sh.mask)
	}
	if mount.level || !capture.level {
		t.Fatalf("status pins mount=%v capture=%v", mount.level, capture.level)
	}
}

func TestOverrideAndRelease(t *testing.T) {
	sh := &fakeShifter{}
	mount, capture := &fakePin{}, &fakePin{}
	p := NewPanel(sh, mount, capture)

	p.Override(StatusMask, StatusMount)
	p.Apply(StatusCapture)
	if mount.level || !capture.level {
		t.Fatalf("override ignored: mount=%v capture=%v", mount.level, capture.level)
	}
	p.Release(StatusMask)
	p.Apply(StatusCapture)
	if !mount.level || capture.level {
		t.Fatalf("release ignored: mount=%v capture=%v", mount.level, capture.level)
	}
}

func TestState(t *testing.T) {
	var s State
	s.Store(StatusCapture | 3)
	if s.Load() != StatusCapture|3 {
		t.Fatal("state roundtrip failed")
	}
}
