// cmd/boardtest/main.go
//
// boardtest brings up keypad hardware without the protocol: it walks a light
// across every LED, then logs key level changes and lights the LEDs of held
// keys.
package main

import (
	"time"

	"keypad-go/keyboard"
	"keypad-go/platform"
	"keypad-go/services/leds"
	"keypad-go/types"
	"keypad-go/x/logx"
)

// ---------- Configuration ----------

const (
	stepDelay = 150 * time.Millisecond
	scanDelay = time.Millisecond

	// Chase rounds before scanning; 0 skips the chase.
	chaseRounds = 2
)

func chaseOrder(l leds.Layout) []uint32 {
	var out []uint32
	for _, b := range l.KeyLEDs {
		out = append(out, 1<<b)
	}
	if l.NumLock >= 0 {
		out = append(out, 1<<l.NumLock)
	}
	if l.CapsLock >= 0 {
		out = append(out, 1<<l.CapsLock)
	}
	return append(out, leds.StatusMount, leds.StatusCapture)
}

func main() {
	b := platform.Board()
	m := keyboard.New(b.Rows, b.Cols, b.Lines)
	panel := leds.NewPanel(b.Shifter, b.MountLED, b.CaptureLED)

	logx.Info("boardtest", "led chase", "rounds", chaseRounds)
	for r := 0; r < chaseRounds; r++ {
		for _, lit := range chaseOrder(b.Layout) {
			panel.Apply(lit)
			time.Sleep(stepDelay)
		}
	}
	panel.Apply(0)

	// Show every key as a plain momentary switch.
	for i := 0; i < m.Len(); i++ {
		m.Key(keyboard.KeyID(i)).Mode = types.ModeNone
	}

	logx.Info("boardtest", "scanning", "keys", m.Len())
	prev := make([]byte, m.Len())
	cur := make([]byte, m.Len())
	for {
		m.Scan(b.Clock.Millis())
		m.Levels(cur)
		for i := range cur {
			if cur[i] != prev[i] {
				logx.Info("boardtest", "key", "id", i, "level", types.Level(cur[i]).String(), "order", m.Order(keyboard.KeyID(i)))
			}
		}
		copy(prev, cur)
		panel.Apply(b.Layout.Derive(m, false, false, 0))
		time.Sleep(scanDelay)
	}
}
